package plugin

import (
	"context"
	"fmt"
	"slices"

	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

// Status tells live components from placeholders.
type Status int

// Component statuses.
const (
	// StatusLive is a component whose unit loaded and produced a component.
	StatusLive Status = iota

	// StatusPlaceholder stands in for a unit that failed to load.
	StatusPlaceholder
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusLive:
		return "live"
	case StatusPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Descriptor is the static description of a component.
type Descriptor struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}

func (d Descriptor) clone() Descriptor {
	d.Requirements = slices.Clone(d.Requirements)
	if d.Requirements == nil {
		d.Requirements = []string{}
	}
	return d
}

// Component is an entry in the registry.
type Component interface {
	// Name is the registry key.
	Name() string

	// Description is a one-line summary shown to operators.
	Description() string

	// Requirements are the module names the component declares.
	Requirements() []string

	// Descriptor returns all three fields together.
	Descriptor() Descriptor

	// Unit is where the component was loaded from.
	Unit() Unit

	// Status reports whether the component is live or a placeholder.
	Status() Status

	// Available is true for live components.
	Available() bool

	// Render produces the component's output.
	Render(ctx context.Context) (string, error)

	// Close releases the component's resources.
	Close() error
}

// Live is a component backed by a table in its own Lua state.
type Live struct {
	unit  Unit
	desc  Descriptor
	state *plua.State
	obj   lua.LValue
}

// Name returns the component name.
func (c *Live) Name() string { return c.desc.Name }

// Description returns the component description.
func (c *Live) Description() string { return c.desc.Description }

// Requirements returns a copy of the declared requirements.
func (c *Live) Requirements() []string { return c.desc.clone().Requirements }

// Descriptor returns a copy of the descriptor.
func (c *Live) Descriptor() Descriptor { return c.desc.clone() }

// Unit returns the unit the component came from.
func (c *Live) Unit() Unit { return c.unit }

// Status returns StatusLive.
func (c *Live) Status() Status { return StatusLive }

// Available returns true.
func (c *Live) Available() bool { return true }

// Render calls the component's render method. Calls on one component are
// serialized by its state. A nil result renders as the empty string;
// numbers are formatted; any other result is an error.
func (c *Live) Render(ctx context.Context) (string, error) {
	rets, err := c.state.CallMethod(ctx, c.obj, "render")
	if err != nil {
		return "", fmt.Errorf("render %s: %w", c.desc.Name, err)
	}
	if len(rets) == 0 {
		return "", nil
	}
	switch v := rets[0].(type) {
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		return v.String(), nil
	default:
		if v == lua.LNil {
			return "", nil
		}
		return "", fmt.Errorf("render %s: %w: render returned a %s", c.desc.Name, ErrInvalidComponent, v.Type())
	}
}

// Close closes the component's Lua state.
func (c *Live) Close() error {
	return c.state.Close()
}
