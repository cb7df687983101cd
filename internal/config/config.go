package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/agentdeck/internal/config/loader"
	"github.com/dshills/agentdeck/internal/store"
)

// EnvPrefix prefixes environment overrides for the fixed sections.
const EnvPrefix = "AGENTDECK_"

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "agentdeck.toml"

// Paths locates the files and directories agentdeck works with.
type Paths struct {
	Components string `toml:"components"`
	Lib        string `toml:"lib"`
	Enablement string `toml:"enablement"`
	Artifacts  string `toml:"artifacts"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Server configures the dashboard listener.
type Server struct {
	Addr string `toml:"addr"`
}

// Plugins configures plugin loading.
type Plugins struct {
	LoadTimeout string `toml:"load_timeout"`
}

// Timeout parses LoadTimeout. An empty value means no timeout.
func (p Plugins) Timeout() (time.Duration, error) {
	if strings.TrimSpace(p.LoadTimeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.LoadTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: plugins.load_timeout = %q", ErrInvalidDuration, p.LoadTimeout)
	}
	return d, nil
}

// file is the TOML document layout.
type file struct {
	Paths    Paths             `toml:"paths"`
	Logging  Logging           `toml:"logging"`
	Server   Server            `toml:"server"`
	Plugins  Plugins           `toml:"plugins"`
	Settings map[string]string `toml:"settings"`
}

// Defaults returns the built-in section values.
func Defaults() map[string]any {
	return map[string]any{
		"paths": map[string]any{
			"components": "components",
			"lib":        "lib",
			"enablement": "enabled.json",
			"artifacts":  "artifacts",
		},
		"logging": map[string]any{
			"level": "info",
			"file":  "",
		},
		"server": map[string]any{
			"addr": ":8501",
		},
		"plugins": map[string]any{
			"load_timeout": "",
		},
	}
}

// envMapping maps short environment names onto config paths.
var envMapping = map[string]string{
	"AGENTDECK_LOG_LEVEL":  "logging.level",
	"AGENTDECK_LOG_FILE":   "logging.file",
	"AGENTDECK_COMPONENTS": "paths.components",
	"AGENTDECK_ADDR":       "server.addr",
}

// Config is the application configuration. The section fields are fixed
// after Load; settings may change at runtime and are guarded by a mutex.
type Config struct {
	Paths   Paths
	Logging Logging
	Server  Server
	Plugins Plugins

	// saved holds the section values from defaults and the file only, so
	// Save never writes environment overrides.
	saved file

	path    string
	fs      loader.FileSystem
	lookup  func(string) (string, bool)
	environ func() []string

	mu        sync.RWMutex
	items     map[string]Item
	order     []string
	values    map[string]string
	env       map[string]string
	set       map[string]bool
	listeners []func(key, value string)
}

// Option configures Load.
type Option func(*Config)

// WithFS reads the config file through fs.
func WithFS(fs loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fs
	}
}

// WithEnviron replaces the process environment with env, given as
// KEY=value pairs.
func WithEnviron(env []string) Option {
	return func(c *Config) {
		vars := make(map[string]string, len(env))
		for _, kv := range env {
			if k, v, ok := strings.Cut(kv, "="); ok {
				vars[k] = v
			}
		}
		c.lookup = func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		}
		c.environ = func() []string {
			return append([]string(nil), env...)
		}
	}
}

// Load reads the configuration at path. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string, opts ...Option) (*Config, error) {
	c := &Config{
		path:    path,
		fs:      loader.DefaultFS(),
		lookup:  os.LookupEnv,
		environ: os.Environ,
		items:   make(map[string]Item),
		values:  make(map[string]string),
		env:     make(map[string]string),
		set:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}

	doc, err := c.read(true)
	if err != nil {
		return nil, err
	}
	c.Paths = doc.Paths
	c.Logging = doc.Logging
	c.Server = doc.Server
	c.Plugins = doc.Plugins
	if _, err := c.Plugins.Timeout(); err != nil {
		return nil, err
	}
	for k, v := range doc.Settings {
		c.values[k] = v
	}
	if c.saved, err = c.read(false); err != nil {
		return nil, err
	}

	for _, item := range BuiltinItems() {
		if err := c.Register(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// read decodes the file. withEnv layers AGENTDECK_* overrides on top.
func (c *Config) read(withEnv bool) (file, error) {
	loaders := []loader.Loader{
		loader.Static(Defaults()),
		loader.NewTOMLLoaderWithFS(c.fs, c.path),
	}
	if withEnv {
		env := loader.NewEnvLoader(EnvPrefix, envMapping)
		env.SetSource(c.lookup, c.environ)
		loaders = append(loaders, env)
	}
	merged, err := loader.Chain(loaders...)
	if err != nil {
		return file{}, err
	}

	if raw, ok := merged["settings"].(map[string]any); ok {
		merged["settings"] = stringifySettings(raw)
	}

	data, err := toml.Marshal(merged)
	if err != nil {
		return file{}, fmt.Errorf("encoding merged config: %w", err)
	}
	var doc file
	if err := toml.Unmarshal(data, &doc); err != nil {
		return file{}, &loader.ParseError{Path: c.path, Message: err.Error(), Err: err}
	}
	if doc.Settings == nil {
		doc.Settings = make(map[string]string)
	}
	return doc, nil
}

// stringifySettings flattens setting values to strings so numbers and
// booleans written without quotes are still accepted.
func stringifySettings(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case map[string]any, []any:
			continue
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

// Resolve makes p absolute relative to the config file directory when it
// is relative. Empty paths stay empty.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(c.path), p)
}

// Get returns the effective value of a setting: an operator Set, then the
// environment, then the file, then the item default. Unknown keys that
// appear in the file are still returned.
func (c *Config) Get(key string) string {
	v, _ := c.Lookup(key)
	return v
}

// Lookup is Get that also reports whether any layer provided a value.
func (c *Config) Lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupLocked(key)
}

func (c *Config) lookupLocked(key string) (string, bool) {
	if v, ok := c.env[key]; ok {
		return v, true
	}
	if v, ok := c.values[key]; ok {
		return v, true
	}
	if item, ok := c.items[key]; ok && item.Default != "" {
		return item.Default, true
	}
	return "", false
}

// Set validates and records a setting value. The value overrides the
// environment for the rest of the process and is persisted by Save.
func (c *Config) Set(key, value string) error {
	c.mu.Lock()
	item, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	if err := item.Validate(value); err != nil {
		c.mu.Unlock()
		return err
	}
	c.values[key] = value
	c.set[key] = true
	delete(c.env, key)
	listeners := append([]func(string, string){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(key, value)
	}
	return nil
}

// OnChange registers fn to run after every successful Set and for every
// setting whose value changes on Reload.
func (c *Config) OnChange(fn func(key, value string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Save rewrites the config file with the sections as read from the file
// and the settings recorded from the file or Set. Environment values are
// never written.
func (c *Config) Save() error {
	c.mu.RLock()
	doc := file{
		Paths:    c.saved.Paths,
		Logging:  c.saved.Logging,
		Server:   c.saved.Server,
		Plugins:  c.saved.Plugins,
		Settings: make(map[string]string, len(c.values)),
	}
	for k, v := range c.values {
		doc.Settings[k] = v
	}
	c.mu.RUnlock()

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return store.WriteAtomic(c.path, data, 0600)
}

// Reload re-reads the [settings] table from the file. Effective section
// values are left untouched; the file's sections are kept for Save. Keys
// removed from the file fall back to lower layers.
func (c *Config) Reload() error {
	doc, err := c.read(false)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.saved = doc
	before := c.snapshotLocked()
	c.values = make(map[string]string, len(doc.Settings))
	for k, v := range doc.Settings {
		c.values[k] = v
	}
	after := c.snapshotLocked()
	listeners := append([]func(string, string){}, c.listeners...)
	c.mu.Unlock()

	var changed []string
	for k, v := range after {
		if before[k] != v {
			changed = append(changed, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	for _, k := range changed {
		for _, fn := range listeners {
			fn(k, after[k])
		}
	}
	return nil
}

func (c *Config) snapshotLocked() map[string]string {
	out := make(map[string]string)
	keys := make(map[string]bool)
	for k := range c.items {
		keys[k] = true
	}
	for k := range c.values {
		keys[k] = true
	}
	for k := range keys {
		if v, ok := c.lookupLocked(k); ok {
			out[k] = v
		}
	}
	return out
}
