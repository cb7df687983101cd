package loader

import (
	"os"
	"strings"
)

// EnvLoader loads configuration from environment variables.
//
// Values are kept as strings. Mapped variables are placed at their
// configured dotted path; other variables carrying the prefix are placed
// at "<section>.<rest>" with the remainder lowercased, so
// AGENTDECK_SERVER_ADDR becomes server.addr.
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	lookup  func(string) (string, bool)
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "AGENTDECK_").
func NewEnvLoader(prefix string, mapping map[string]string) *EnvLoader {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return &EnvLoader{
		prefix:  prefix,
		mapping: m,
		lookup:  os.LookupEnv,
		environ: os.Environ,
	}
}

// AddMapping maps an environment variable onto a config path.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// SetSource replaces the process environment with lookup and environ.
func (l *EnvLoader) SetSource(lookup func(string) (string, bool), environ func() []string) {
	if lookup != nil {
		l.lookup = lookup
	}
	if environ != nil {
		l.environ = environ
	}
}

// Load reads environment variables and returns a configuration map.
// Empty values count as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, path := range l.mapping {
		if val, ok := l.lookup(env); ok {
			SetByPath(config, path, val)
		}
	}

	if l.prefix == "" {
		return config, nil
	}
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if _, mapped := l.mapping[name]; mapped {
			continue
		}
		if path := l.envToPath(name); path != "" {
			SetByPath(config, path, value)
		}
	}
	return config, nil
}

// envToPath converts AGENTDECK_PLUGINS_LOAD_TIMEOUT to plugins.load_timeout.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, rest, ok := strings.Cut(name, "_")
	if !ok || section == "" || rest == "" {
		return ""
	}
	return section + "." + rest
}

// SetByPath sets a value in a nested map using a dot-separated path.
func SetByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
