package app

import (
	"io"

	"github.com/dshills/agentdeck/internal/artifact"
	"github.com/dshills/agentdeck/internal/config"
	"github.com/dshills/agentdeck/internal/logging"
	"github.com/dshills/agentdeck/internal/plugin"
	"github.com/dshills/agentdeck/internal/plugin/api"
	plua "github.com/dshills/agentdeck/internal/plugin/lua"
	"github.com/dshills/agentdeck/internal/store"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *App
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *App) *bootstrapper {
	return &bootstrapper{
		app:       app,
		initOrder: make([]string, 0, 4),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initConfig,
		b.initLogging,
		b.initHostModules,
		b.initRegistry,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

// initConfig loads the configuration file and environment overrides.
func (b *bootstrapper) initConfig() error {
	var opts []config.Option
	if b.app.opts.Environ != nil {
		opts = append(opts, config.WithEnviron(b.app.opts.Environ))
	}
	cfg, err := config.Load(b.app.opts.ConfigPath, opts...)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	b.app.config = cfg
	b.initOrder = append(b.initOrder, "config")
	return nil
}

// initLogging opens the application logger.
func (b *bootstrapper) initLogging() error {
	cfg := b.app.config
	level := cfg.Logging.Level
	if b.app.opts.LogLevel != "" {
		level = b.app.opts.LogLevel
	}

	var (
		logger *logging.Logger
		closer io.Closer
		err    error
	)
	if b.app.opts.LogOutput != nil {
		logger, closer, err = logging.Open(level, "")
		if err == nil {
			logger.SetOutput(b.app.opts.LogOutput)
		}
	} else {
		logger, closer, err = logging.Open(level, cfg.Resolve(cfg.Logging.File))
	}
	if err != nil {
		return &InitError{Component: "logging", Err: err}
	}

	b.app.logger = logger
	b.app.logCloser = closer
	b.initOrder = append(b.initOrder, "logging")

	logger.Debug("configuration loaded from %s", cfg.Path())
	if unknown := cfg.Unregistered(); len(unknown) > 0 {
		logger.Debug("settings without a registered item: %v", unknown)
	}
	return nil
}

// initHostModules creates the artifact store and the Lua host modules.
func (b *bootstrapper) initHostModules() error {
	cfg := b.app.config
	b.app.artifacts = artifact.NewStore(cfg.Resolve(cfg.Paths.Artifacts))

	modules, err := api.NewRegistry(
		api.NewComponentModule(),
		api.NewLLMModule(b.app.NewLLMClient),
		api.NewArtifactsModule(b.app.artifacts),
		api.NewConfigModule(cfg),
	)
	if err != nil {
		return &InitError{Component: "host modules", Err: err}
	}
	b.app.modules = modules
	b.app.resolver = plua.NewResolver(modules, cfg.Resolve(cfg.Paths.Lib))
	b.initOrder = append(b.initOrder, "modules")
	return nil
}

// initRegistry creates the loader and the plugin registry.
func (b *bootstrapper) initRegistry() error {
	cfg := b.app.config
	timeout, err := cfg.Plugins.Timeout()
	if err != nil {
		return &InitError{Component: "plugins", Err: err}
	}

	logger := b.app.logger
	loader := plugin.NewLuaLoader(b.app.resolver,
		plugin.WithStateOptions(b.app.modules.StateOptions()...),
		plugin.WithLoadTimeout(timeout),
		plugin.WithUnitOutput(func(u plugin.Unit) io.Writer {
			return logger.WithField("unit", u.Name).Writer(logging.LevelInfo)
		}),
	)

	b.app.registry = plugin.NewRegistry(plugin.RegistryConfig{
		Root:    cfg.Resolve(cfg.Paths.Components),
		Loader:  loader,
		Checker: plugin.NewChecker(b.app.resolver),
		Store:   store.New(cfg.Resolve(cfg.Paths.Enablement)),
		Logger:  logger,
	})
	events := logger.WithComponent("registry")
	b.app.registry.OnEvent(func(ev plugin.Event) {
		events.Debug("%s %s", ev.Type, ev.Name)
	})
	b.initOrder = append(b.initOrder, "registry")
	return nil
}

// cleanup performs cleanup in reverse initialization order.
// Called when bootstrap fails partway through.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case "registry":
		if b.app.registry != nil {
			_ = b.app.registry.Close()
			b.app.registry = nil
		}
	case "modules":
		b.app.modules = nil
		b.app.resolver = nil
		b.app.artifacts = nil
	case "logging":
		if b.app.logCloser != nil {
			_ = b.app.logCloser.Close()
			b.app.logCloser = nil
		}
		b.app.logger = nil
	case "config":
		b.app.config = nil
	}
}
