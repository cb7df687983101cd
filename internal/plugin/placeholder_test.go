package plugin

import (
	"context"
	"errors"
	"strings"
	"testing"

	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

func TestPlaceholderRenderMissing(t *testing.T) {
	lib := t.TempDir()
	checker := NewChecker(plua.NewResolver(nil, lib))
	p := NewPlaceholder(Unit{Name: "writer"}, Descriptor{
		Name:         "Writer",
		Requirements: []string{"string", "markdown", "ghost"},
	}, errors.New("boom"), checker)

	out, err := p.Render(context.Background())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(out, "Writer is unavailable.") {
		t.Errorf("Render() = %q, want unavailable notice", out)
	}
	if !strings.Contains(out, "Missing requirements: markdown, ghost") {
		t.Errorf("Render() = %q, want missing list", out)
	}

	// Requirements are checked again on every render.
	writeFiles(t, lib, map[string]string{"markdown.lua": "return {}"})
	out, _ = p.Render(context.Background())
	if !strings.Contains(out, "Missing requirements: ghost") {
		t.Errorf("Render() after install = %q", out)
	}
}

func TestPlaceholderRenderCause(t *testing.T) {
	p := NewPlaceholder(Unit{Name: "x"}, Descriptor{Name: "X"}, errors.New("syntax error near end"), NewChecker(nil))
	out, err := p.Render(context.Background())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "It failed to load: syntax error near end") {
		t.Errorf("Render() = %q, want load cause", out)
	}
}

func TestPlaceholderDescriptor(t *testing.T) {
	reqs := []string{"a"}
	p := NewPlaceholder(Unit{Name: "x"}, Descriptor{Name: "X", Description: "D", Requirements: reqs}, nil, nil)
	reqs[0] = "changed"

	if p.Status() != StatusPlaceholder || p.Available() {
		t.Errorf("Status() = %s, Available() = %v", p.Status(), p.Available())
	}
	d := p.Descriptor()
	if d.Name != "X" || d.Description != "D" || !equalStrings(d.Requirements, []string{"a"}) {
		t.Errorf("Descriptor() = %+v", d)
	}
	d.Requirements[0] = "mutated"
	if p.Requirements()[0] != "a" {
		t.Error("Descriptor() shares its requirements slice")
	}
	if got := p.Missing(); got == nil || len(got) != 0 {
		t.Errorf("Missing() without checker = %#v, want empty", got)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
