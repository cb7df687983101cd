package plugin

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dshills/agentdeck/internal/logging"
)

// EnablementStore persists the enabled component names.
type EnablementStore interface {
	Load() ([]string, error)
	Save(enabled []string) error
}

// Outcome is what happened to one unit during discovery.
type Outcome struct {
	Unit   Unit
	Name   string
	Status string
	Err    error
}

// Outcome statuses. Live and placeholder match Status.String.
const (
	OutcomeLive        = "live"
	OutcomePlaceholder = "placeholder"
	OutcomeSkipped     = "skipped"
)

// Report summarizes a discovery pass.
type Report struct {
	Root         string
	Units        []Outcome
	Live         int
	Placeholders int
	Skipped      int

	// Ignored lists the hidden and underscore-prefixed entries of Root.
	Ignored []string

	// Err is set when the root itself could not be read.
	Err error
}

// EventType is the type of registry event.
type EventType int

const (
	// EventDiscovered is emitted after every discovery pass.
	EventDiscovered EventType = iota
	// EventEnabled is emitted when a component is enabled.
	EventEnabled
	// EventDisabled is emitted when a component is disabled.
	EventDisabled
	// EventSaved is emitted after the enabled set is saved.
	EventSaved
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventDiscovered:
		return "discovered"
	case EventEnabled:
		return "enabled"
	case EventDisabled:
		return "disabled"
	case EventSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// Event describes a registry change. Name is empty for registry-wide
// events.
type Event struct {
	Type EventType
	Name string
}

// EventHandler handles registry events. Handlers run after the registry
// lock is released; panics are recovered.
type EventHandler func(event Event)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Root is the directory scanned for units.
	Root string

	// Loader loads each unit.
	Loader Loader

	// Checker computes missing requirements for placeholders.
	Checker *Checker

	// Store persists the enabled set.
	Store EnablementStore

	// Logger receives per-unit outcomes. Nil discards.
	Logger *logging.Logger
}

// Registry discovers components and tracks which are enabled.
//
// available is rebuilt by every Discover; enabled is read by LoadConfig,
// changed in memory, and persisted by SaveConfig. The enabled list may
// name components that are not available; those names are kept.
type Registry struct {
	mu sync.RWMutex

	root    string
	loader  Loader
	checker *Checker
	store   EnablementStore
	logger  *logging.Logger

	available map[string]Component
	order     []string
	enabled   []string

	handlers []EventHandler
}

// NewRegistry creates an empty registry. Call LoadConfig and Discover to
// populate it.
func NewRegistry(cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	checker := cfg.Checker
	if checker == nil {
		checker = NewChecker(nil)
	}
	return &Registry{
		root:      cfg.Root,
		loader:    cfg.Loader,
		checker:   checker,
		store:     cfg.Store,
		logger:    logger.WithComponent("registry"),
		available: make(map[string]Component),
		enabled:   []string{},
	}
}

// Root returns the scanned directory.
func (r *Registry) Root() string {
	return r.root
}

// Checker returns the requirement checker.
func (r *Registry) Checker() *Checker {
	return r.checker
}

// OnEvent registers an event handler.
func (r *Registry) OnEvent(handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// Discover rebuilds the available components from the root directory.
//
// Every unit yields exactly one entry: a live component, or a placeholder
// when the unit fails to load. Units whose factory fails are left out.
// When two units resolve to the same name the later one replaces the
// earlier one in place. Discover never fails; problems are logged and
// reported.
func (r *Registry) Discover(ctx context.Context) Report {
	report := Report{Root: r.root}
	available := make(map[string]Component)
	var order []string

	units, ignored, err := scan(r.root)
	if err != nil {
		r.logger.Warn("cannot read components directory %s: %v", r.root, err)
		report.Err = err
	}
	for _, name := range ignored {
		r.logger.Debug("skipping %s: hidden or underscore-prefixed", filepath.Join(r.root, name))
	}
	report.Ignored = ignored

	for _, unit := range units {
		outcome := r.load(ctx, unit)
		report.Units = append(report.Units, outcome.Outcome)
		switch outcome.Status {
		case OutcomeLive:
			report.Live++
		case OutcomePlaceholder:
			report.Placeholders++
		default:
			report.Skipped++
			continue
		}

		name := outcome.component.Name()
		if prev, exists := available[name]; exists {
			r.logger.Warn("component %q from %s replaces the one from %s", name, unit.Entry, prev.Unit().Entry)
			if err := prev.Close(); err != nil {
				r.logger.Debug("closing replaced component %q: %v", name, err)
			}
		} else {
			order = append(order, name)
		}
		available[name] = outcome.component
	}

	r.mu.Lock()
	previous := r.available
	r.available = available
	r.order = order
	r.mu.Unlock()

	for name, comp := range previous {
		if err := comp.Close(); err != nil {
			r.logger.Debug("closing component %q: %v", name, err)
		}
	}

	r.logger.Info("discovered %d components (%d live, %d placeholders, %d skipped)",
		len(order), report.Live, report.Placeholders, report.Skipped)
	r.emit(Event{Type: EventDiscovered})
	return report
}

type loadResult struct {
	Outcome
	component Component
}

func (r *Registry) load(ctx context.Context, unit Unit) loadResult {
	log := r.logger.WithField("unit", unit.Name)
	res := loadResult{Outcome: Outcome{Unit: unit, Name: unit.Name}}

	if r.loader == nil {
		res.Status = OutcomeSkipped
		res.Err = errors.New("no loader configured")
		return res
	}

	comp, err := r.loader.Load(ctx, unit)
	if err == nil {
		res.Status = OutcomeLive
		res.Name = comp.Name()
		res.component = comp
		log.Debug("loaded component %q", comp.Name())
		return res
	}
	res.Err = err

	var ferr *FactoryError
	if errors.As(err, &ferr) {
		log.Error("skipping unit: %v", err)
		res.Status = OutcomeSkipped
		return res
	}

	log.Warn("unit failed to load, using placeholder: %v", err)
	meta, merr := Extract(unit.Entry, unit.RequirementsFile)
	if merr != nil {
		log.Warn("reading static metadata: %v", merr)
	}
	desc := Descriptor{
		Name:         meta.Name,
		Description:  meta.Description,
		Requirements: meta.Requirements,
	}
	if desc.Name == "" {
		desc.Name = unit.Name
	}
	res.Status = OutcomePlaceholder
	res.Name = desc.Name
	res.component = NewPlaceholder(unit, desc, err, r.checker)
	return res
}

// Get returns the available component called name.
func (r *Registry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	comp, ok := r.available[name]
	return comp, ok
}

// Available returns the available components in discovery order.
func (r *Registry) Available() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.available[name])
	}
	return out
}

// Names returns the available component names in discovery order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// EnabledComponents returns, in discovery order, the available components
// whose names are enabled.
func (r *Registry) EnabledComponents() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Component{}
	for _, name := range r.order {
		if slices.Contains(r.enabled, name) {
			out = append(out, r.available[name])
		}
	}
	return out
}

// Enabled returns the enabled names, including ones not available.
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.enabled)
}

// IsEnabled reports whether name is in the enabled set.
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.enabled, name)
}

// Enable adds an available component to the enabled set.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	if _, ok := r.available[name]; !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	changed := !slices.Contains(r.enabled, name)
	if changed {
		r.enabled = append(r.enabled, name)
	}
	r.mu.Unlock()

	if changed {
		r.emit(Event{Type: EventEnabled, Name: name})
	}
	return nil
}

// Disable removes name from the enabled set. Names that are not
// available can be disabled too.
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	i := slices.Index(r.enabled, name)
	if i >= 0 {
		r.enabled = slices.Delete(r.enabled, i, i+1)
	}
	r.mu.Unlock()

	if i >= 0 {
		r.emit(Event{Type: EventDisabled, Name: name})
	}
}

// SetEnabled replaces the enabled set. Duplicates are dropped, first
// occurrence wins.
func (r *Registry) SetEnabled(names []string) {
	next := dedupe(names)

	r.mu.Lock()
	prev := r.enabled
	r.enabled = next
	r.mu.Unlock()

	for _, name := range next {
		if !slices.Contains(prev, name) {
			r.emit(Event{Type: EventEnabled, Name: name})
		}
	}
	for _, name := range prev {
		if !slices.Contains(next, name) {
			r.emit(Event{Type: EventDisabled, Name: name})
		}
	}
}

// LoadConfig reads the enabled set from the store. A missing document
// gives an empty set. An unreadable document also gives an empty set; the
// error is logged and returned for callers that want to show it.
func (r *Registry) LoadConfig() error {
	var (
		enabled []string
		err     error
	)
	if r.store != nil {
		enabled, err = r.store.Load()
	}
	if err != nil {
		r.logger.Warn("cannot read enabled components, starting with none: %v", err)
		enabled = nil
	}

	r.mu.Lock()
	r.enabled = dedupe(enabled)
	r.mu.Unlock()
	return err
}

// SaveConfig writes the enabled set to the store.
func (r *Registry) SaveConfig() error {
	if r.store == nil {
		return errors.New("no enablement store configured")
	}
	enabled := r.Enabled()
	if err := r.store.Save(enabled); err != nil {
		r.logger.Error("saving enabled components: %v", err)
		return err
	}
	r.emit(Event{Type: EventSaved})
	return nil
}

// Close releases every available component.
func (r *Registry) Close() error {
	r.mu.Lock()
	available := r.available
	r.available = make(map[string]Component)
	r.order = nil
	r.mu.Unlock()

	var errs []error
	for _, comp := range available {
		if err := comp.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) emit(event Event) {
	r.mu.RLock()
	handlers := slices.Clone(r.handlers)
	r.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("event handler panic on %s: %v", event.Type, p)
				}
			}()
			h(event)
		}()
	}
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}
