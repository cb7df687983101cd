package config

import (
	"context"

	"github.com/dshills/agentdeck/internal/config/watcher"
)

// Watch reloads settings whenever the config file changes on disk until
// ctx is done. onReload, if non-nil, receives the result of every reload.
// Watch returns once the watch is established.
func (c *Config) Watch(ctx context.Context, onReload func(error)) error {
	w, err := watcher.New(watcher.WithErrorHandler(func(err error) {
		if onReload != nil {
			onReload(err)
		}
	}))
	if err != nil {
		return err
	}
	if err := w.Watch(c.path); err != nil {
		_ = w.Stop()
		return err
	}

	w.OnChange(func(ev watcher.Event) {
		if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
			return
		}
		err := c.Reload()
		if onReload != nil {
			onReload(err)
		}
	})
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return err
	}

	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()
	return nil
}
