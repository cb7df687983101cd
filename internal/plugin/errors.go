package plugin

import (
	"errors"
	"fmt"
)

// Plugin system errors.
var (
	// ErrNoFactory is returned when a unit does not define get_component.
	ErrNoFactory = errors.New("unit does not define get_component")

	// ErrInvalidComponent is returned when a factory result does not have
	// the component shape.
	ErrInvalidComponent = errors.New("invalid component")

	// ErrNotFound is returned when a component name is not available.
	ErrNotFound = errors.New("component not found")
)

// UnitLoadError reports that running a unit's entry chunk failed. The unit
// is still listed, as a placeholder.
type UnitLoadError struct {
	Unit string
	Path string
	Err  error
}

func (e *UnitLoadError) Error() string {
	return fmt.Sprintf("load unit %s (%s): %v", e.Unit, e.Path, e.Err)
}

func (e *UnitLoadError) Unwrap() error {
	return e.Err
}

// FactoryError reports that a unit ran but did not produce a component.
// The unit is left out of the registry.
type FactoryError struct {
	Unit string
	Err  error
}

func (e *FactoryError) Error() string {
	return fmt.Sprintf("unit %s: get_component: %v", e.Unit, e.Err)
}

func (e *FactoryError) Unwrap() error {
	return e.Err
}

// MetadataParseError reports that a unit's source could not be parsed for
// static metadata.
type MetadataParseError struct {
	Path string
	Err  error
}

func (e *MetadataParseError) Error() string {
	return fmt.Sprintf("parse metadata from %s: %v", e.Path, e.Err)
}

func (e *MetadataParseError) Unwrap() error {
	return e.Err
}
