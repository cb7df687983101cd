// Package app wires configuration, logging, the Lua host modules and the
// plugin registry into one application object shared by the CLI and the
// dashboard.
package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/dshills/agentdeck/internal/artifact"
	"github.com/dshills/agentdeck/internal/config"
	"github.com/dshills/agentdeck/internal/llm"
	"github.com/dshills/agentdeck/internal/logging"
	"github.com/dshills/agentdeck/internal/plugin"
	"github.com/dshills/agentdeck/internal/plugin/api"
	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

// App owns every long-lived collaborator. Construct it with New and
// release it with Close.
type App struct {
	opts Options

	// Core infrastructure
	config    *config.Config
	logger    *logging.Logger
	logCloser io.Closer
	metrics   *Metrics

	// Plugin host
	artifacts *artifact.Store
	modules   *api.Registry
	resolver  *plua.Resolver
	registry  *plugin.Registry

	closed atomic.Bool
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// LogLevel overrides logging.level from the file when set.
	LogLevel string

	// Environ replaces the process environment, as KEY=value pairs.
	Environ []string

	// LogOutput replaces stderr and the log file when set.
	LogOutput io.Writer
}

// New creates an application. Plugins are not discovered until Start.
func New(opts Options) (*App, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath
	}
	app := &App{
		opts:    opts,
		metrics: NewMetrics(),
	}
	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Config returns the configuration.
func (app *App) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *App) Logger() *logging.Logger {
	return app.logger
}

// Registry returns the plugin registry.
func (app *App) Registry() *plugin.Registry {
	return app.registry
}

// Artifacts returns the artifact store.
func (app *App) Artifacts() *artifact.Store {
	return app.artifacts
}

// Modules returns the host modules preloaded into plugin states.
func (app *App) Modules() *api.Registry {
	return app.modules
}

// Metrics returns the application's metrics.
func (app *App) Metrics() *Metrics {
	return app.metrics
}

// Start reads the enabled set and runs the first discovery.
func (app *App) Start(ctx context.Context) plugin.Report {
	// A read error is logged by the registry and leaves nothing enabled.
	_ = app.registry.LoadConfig()
	return app.Rescan(ctx)
}

// Rescan rebuilds the available components.
func (app *App) Rescan(ctx context.Context) plugin.Report {
	timer := StartTimer()
	report := app.registry.Discover(ctx)
	app.metrics.RecordDiscovery(timer.Elapsed(), report)
	return report
}

// Render renders an enabled component.
func (app *App) Render(ctx context.Context, name string) (string, error) {
	if !app.registry.IsEnabled(name) {
		if _, ok := app.registry.Get(name); !ok {
			return "", NewOperationError("render", name, plugin.ErrNotFound)
		}
		return "", NewOperationError("render", name, ErrNotEnabled)
	}
	return app.Preview(ctx, name)
}

// Preview renders an available component whether or not it is enabled.
func (app *App) Preview(ctx context.Context, name string) (string, error) {
	if app.closed.Load() {
		return "", ErrClosed
	}
	comp, ok := app.registry.Get(name)
	if !ok {
		return "", NewOperationError("render", name, plugin.ErrNotFound)
	}

	timer := StartTimer()
	out, err := app.renderComponent(ctx, name, comp)
	app.metrics.RecordRender(timer.Elapsed(), err)
	if err != nil {
		app.logger.WithField("component", name).Error("render failed: %v", err)
		return "", NewOperationError("render", name, err)
	}
	return out, nil
}

// renderComponent renders comp. A rescan closes the components of the
// previous pass, so a render that lost that race is retried once against
// the component now registered under name.
func (app *App) renderComponent(ctx context.Context, name string, comp plugin.Component) (string, error) {
	out, err := comp.Render(ctx)
	if !errors.Is(err, plua.ErrStateClosed) {
		return out, err
	}
	fresh, ok := app.registry.Get(name)
	if !ok || fresh == comp {
		return out, err
	}
	app.logger.WithField("component", name).Debug("component replaced by rescan, rendering again")
	return fresh.Render(ctx)
}

// SetEnabled replaces the enabled set and saves it.
func (app *App) SetEnabled(names []string) error {
	app.registry.SetEnabled(names)
	if err := app.registry.SaveConfig(); err != nil {
		return NewOperationError("save", "enabled components", err)
	}
	return nil
}

// WatchConfig reloads settings when the config file changes until ctx is
// done.
func (app *App) WatchConfig(ctx context.Context) error {
	log := app.logger.WithComponent("config")
	return app.config.Watch(ctx, func(err error) {
		if err != nil {
			log.Warn("reloading %s: %v", app.config.Path(), err)
			return
		}
		log.Info("reloaded %s", app.config.Path())
	})
}

// NewLLMClient builds a client from the current settings.
func (app *App) NewLLMClient() (llm.Client, error) {
	c := app.config
	return llm.New(llm.Options{
		Provider: c.Get(config.KeyProvider),
		APIKey:   c.Get(config.KeyAPIKey),
		BaseURL:  c.Get(config.KeyBaseURL),
		Model:    c.Get(config.KeyGenerationModel),
	})
}

// Close releases every component and the log file. It is safe to call
// more than once.
func (app *App) Close() error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs ErrorList
	errs.Add(app.registry.Close())
	errs.Add(app.logCloser.Close())
	return errs.AsError()
}
