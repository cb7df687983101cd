package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ItemType is how a setting is edited and displayed.
type ItemType string

// Setting item types.
const (
	TypeText     ItemType = "text"
	TypePassword ItemType = "password"
	TypeSelect   ItemType = "select"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case TypeText, TypePassword, TypeSelect:
		return true
	}
	return false
}

// Item describes a keyed setting.
type Item struct {
	// Key is the setting name and the environment variable read for it.
	Key string

	// Description is shown next to the setting in listings.
	Description string

	// Type controls validation and masking.
	Type ItemType

	// Options lists the accepted values of a select setting.
	Options []string

	// Default is used when no layer provides a value.
	Default string
}

// Validate checks value against the item's type.
func (i Item) Validate(value string) error {
	if i.Type == TypeSelect && !slices.Contains(i.Options, value) {
		return fmt.Errorf("%w: %s = %q (options: %s)",
			ErrInvalidOption, i.Key, value, strings.Join(i.Options, ", "))
	}
	return nil
}

// Secret reports whether values of this item must not be displayed.
func (i Item) Secret() bool {
	return i.Type == TypePassword
}

// Setting keys registered at construction.
const (
	KeyProvider        = "LLM_PROVIDER"
	KeyAPIKey          = "API_KEY"
	KeyBaseURL         = "BASE_URL"
	KeyGenerationModel = "GENERATION_MODEL"
	KeyFixingModel     = "FIXING_MODEL"
)

// BuiltinItems returns the settings every installation has.
func BuiltinItems() []Item {
	return []Item{
		{
			Key:         KeyProvider,
			Description: "LLM provider",
			Type:        TypeSelect,
			Options:     []string{"openai", "anthropic", "google"},
			Default:     "openai",
		},
		{
			Key:         KeyAPIKey,
			Description: "API key for the LLM provider",
			Type:        TypePassword,
		},
		{
			Key:         KeyBaseURL,
			Description: "Base URL for OpenAI-compatible endpoints",
			Type:        TypeText,
		},
		{
			Key:         KeyGenerationModel,
			Description: "Model used to generate content",
			Type:        TypeText,
		},
		{
			Key:         KeyFixingModel,
			Description: "Model used to repair generated content",
			Type:        TypeText,
		},
	}
}

// Register adds a setting item. Registering an existing key replaces its
// description, type, options and default but keeps its position. The
// environment variable named after the key is read at registration.
func (c *Config) Register(item Item) error {
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidItem)
	}
	if item.Type == "" {
		item.Type = TypeText
	}
	if !item.Type.Valid() {
		return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidItem, item.Key, item.Type)
	}
	if item.Type == TypeSelect && len(item.Options) == 0 {
		return fmt.Errorf("%w: select setting %s has no options", ErrInvalidItem, item.Key)
	}
	item.Options = slices.Clone(item.Options)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[item.Key]; !exists {
		c.order = append(c.order, item.Key)
	}
	c.items[item.Key] = item

	if !c.set[item.Key] {
		if v, ok := c.lookup(item.Key); ok {
			c.env[item.Key] = v
		}
	}
	return nil
}

// Item returns the registered item for key.
func (c *Config) Item(key string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[key]
	if ok {
		item.Options = slices.Clone(item.Options)
	}
	return item, ok
}

// Items returns the registered items in registration order.
func (c *Config) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.order))
	for _, key := range c.order {
		item := c.items[key]
		item.Options = slices.Clone(item.Options)
		out = append(out, item)
	}
	return out
}

// Entry is a setting paired with its display value.
type Entry struct {
	Item
	Value  string
	Source string
}

// Sources reported by Entries.
const (
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
	SourceUnset   = "unset"
)

// Entries returns every registered setting with its effective value.
// Secret values are masked.
func (c *Config) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		item := c.items[key]
		item.Options = slices.Clone(item.Options)
		e := Entry{Item: item, Source: SourceUnset}
		if v, ok := c.env[key]; ok {
			e.Value, e.Source = v, SourceEnv
		} else if v, ok := c.values[key]; ok {
			e.Value, e.Source = v, SourceFile
		} else if item.Default != "" {
			e.Value, e.Source = item.Default, SourceDefault
		}
		if item.Secret() {
			e.Value = Mask(e.Value)
		}
		out = append(out, e)
	}
	return out
}

// Unregistered returns the keys present in the file's [settings] table
// that no item describes, sorted.
func (c *Config) Unregistered() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for k := range c.values {
		if _, ok := c.items[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Mask hides all but the last four characters of a secret.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", 8) + value[len(value)-4:]
}
