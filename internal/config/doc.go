// Package config provides the configuration system for agentdeck.
//
// Configuration is assembled from three layers, higher layers overriding
// lower ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← AGENTDECK_* and setting keys
//	├─────────────────────────────┤
//	│  2. Config File             │  ← agentdeck.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// The file has fixed sections plus a free-form [settings] table:
//
//	[paths]
//	components = "components"
//	lib = "lib"
//	enablement = "enabled.json"
//	artifacts = "artifacts"
//
//	[logging]
//	level = "info"
//	file = "agentdeck.log"
//
//	[server]
//	addr = ":8501"
//
//	[plugins]
//	load_timeout = "10s"
//
//	[settings]
//	LLM_PROVIDER = "openai"
//	GENERATION_MODEL = "gpt-4o"
//
// # Settings
//
// Keyed settings are described by Items. The built-in items cover the LLM
// provider; plugins register more at load time. A setting value is taken
// from the environment variable named after its key, then from the file,
// then from the item's default. Set records an operator choice that wins
// over the environment until the process exits.
//
//	cfg, err := config.Load("agentdeck.toml")
//	if err != nil {
//	    return err
//	}
//	provider := cfg.Get("LLM_PROVIDER")
//
// # Sub-packages
//
//   - loader: TOML and environment loading, deep merge
package config
