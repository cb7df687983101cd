package plugin

import (
	"context"
	"fmt"
	"strings"
)

// Placeholder stands in for a unit that failed to load. It carries the
// metadata read statically from the unit's source.
type Placeholder struct {
	unit    Unit
	desc    Descriptor
	cause   error
	checker *Checker
}

// NewPlaceholder creates a placeholder. checker is consulted at render
// time so the notice reflects the current environment.
func NewPlaceholder(unit Unit, desc Descriptor, cause error, checker *Checker) *Placeholder {
	return &Placeholder{
		unit:    unit,
		desc:    desc.clone(),
		cause:   cause,
		checker: checker,
	}
}

// Name returns the component name.
func (p *Placeholder) Name() string { return p.desc.Name }

// Description returns the component description.
func (p *Placeholder) Description() string { return p.desc.Description }

// Requirements returns a copy of the declared requirements.
func (p *Placeholder) Requirements() []string { return p.desc.clone().Requirements }

// Descriptor returns a copy of the descriptor.
func (p *Placeholder) Descriptor() Descriptor { return p.desc.clone() }

// Unit returns the unit the placeholder stands in for.
func (p *Placeholder) Unit() Unit { return p.unit }

// Status returns StatusPlaceholder.
func (p *Placeholder) Status() Status { return StatusPlaceholder }

// Available returns false.
func (p *Placeholder) Available() bool { return false }

// Cause returns the load error.
func (p *Placeholder) Cause() error { return p.cause }

// Missing returns the requirements that cannot currently be resolved.
func (p *Placeholder) Missing() []string {
	if p.checker == nil {
		return []string{}
	}
	return p.checker.Missing(p.desc.Requirements)
}

// Render returns a notice explaining why the component is unavailable.
// It never fails.
func (p *Placeholder) Render(context.Context) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is unavailable.", p.desc.Name)
	if missing := p.Missing(); len(missing) > 0 {
		fmt.Fprintf(&b, "\nMissing requirements: %s", strings.Join(missing, ", "))
		b.WriteString("\nAdd them to the lib directory or enable the host module that provides them, then rescan.")
	} else if p.cause != nil {
		fmt.Fprintf(&b, "\nIt failed to load: %v", p.cause)
	}
	return b.String(), nil
}

// Close does nothing.
func (p *Placeholder) Close() error { return nil }
