package config

import "errors"

// Errors returned by configuration operations.
var (
	// ErrUnknownSetting indicates the setting key is not registered.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidOption indicates a select setting was given a value outside
	// its options.
	ErrInvalidOption = errors.New("value is not one of the setting options")

	// ErrInvalidItem indicates a setting item could not be registered.
	ErrInvalidItem = errors.New("invalid setting item")

	// ErrInvalidDuration indicates a malformed duration value.
	ErrInvalidDuration = errors.New("invalid duration")
)
