package app

import (
	"errors"
	"testing"
)

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "op only",
			err:      &OperationError{Op: "save"},
			expected: "save",
		},
		{
			name:     "op and target",
			err:      &OperationError{Op: "render", Target: "Echo Agent"},
			expected: "render Echo Agent",
		},
		{
			name:     "op, target, and context",
			err:      &OperationError{Op: "render", Target: "Echo Agent", Context: "placeholder"},
			expected: "render Echo Agent (placeholder)",
		},
		{
			name:     "full error chain",
			err:      &OperationError{Op: "enable", Target: "Writer", Context: "save failed", Err: errors.New("io error")},
			expected: "enable Writer (save failed): io error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("Error() = '%s', expected '%s'", result, tt.expected)
			}
		})
	}
}

func TestOperationError_WithContext(t *testing.T) {
	err := NewOperationError("save", "enabled.json", nil)
	err = err.WithContext("disk full")

	if err.Context != "disk full" {
		t.Errorf("expected context 'disk full', got '%s'", err.Context)
	}

	var nilErr *OperationError
	if nilErr.WithContext("context") != nil {
		t.Error("expected nil result for nil receiver")
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	err := NewOperationError("render", "Writer", ErrNotEnabled)

	if !errors.Is(err, ErrNotEnabled) {
		t.Error("errors.Is did not find the wrapped error")
	}

	var nilErr *OperationError
	if nilErr.Unwrap() != nil {
		t.Error("expected nil from Unwrap() on nil receiver")
	}
}

func TestInitError(t *testing.T) {
	inner := errors.New("bad toml")
	err := error(&InitError{Component: "config", Err: inner})

	if err.Error() != "init config: bad toml" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected InitError to unwrap")
	}
}

func TestErrorList(t *testing.T) {
	var list ErrorList
	if list.AsError() != nil {
		t.Error("expected nil AsError() for empty list")
	}
	if list.Error() != "" {
		t.Errorf("expected empty message, got %q", list.Error())
	}

	first := errors.New("first")
	list.Add(nil)
	list.Add(first)
	if list.Error() != "first" {
		t.Errorf("single error message = %q", list.Error())
	}

	list.Add(ErrClosed)
	if list.Error() != "2 errors: first: first" {
		t.Errorf("combined message = %q", list.Error())
	}
	if got := len(list.Errors()); got != 2 {
		t.Errorf("expected 2 errors, got %d", got)
	}

	err := list.AsError()
	if !errors.Is(err, first) || !errors.Is(err, ErrClosed) {
		t.Error("expected errors.Is to see every collected error")
	}
}
