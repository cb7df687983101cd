// Package plugin discovers dashboard components written as Lua plugin
// units and tracks which of them are enabled.
//
// # Plugin Units
//
// The components directory is scanned in two passes:
//
//	components/
//	├── echo.lua             # pass 1: single-file module
//	├── writer/              # pass 1: package
//	│   ├── init.lua
//	│   ├── prompts.lua      # require("prompts") from init.lua
//	│   └── requirements.txt # optional, one module name per line
//	└── reviewer/            # pass 2: directory with main.lua only
//	    └── main.lua
//
// Entries starting with "." or "_" are ignored.
//
// # Factory Contract
//
// The entry chunk runs in a fresh sandboxed state. It must define a global
// get_component function returning the component:
//
//	local component = require("component")
//
//	local Echo = component.BaseComponent:extend{
//	    name = "Echo Agent",
//	    description = "Repeats what it is told",
//	    requirements = {"llm"},
//	}
//
//	function Echo:render()
//	    return "hello"
//	end
//
//	function get_component()
//	    return Echo:new()
//	end
//
// # Failure Handling
//
// A unit whose chunk fails to run still appears in the registry as a
// Placeholder built from metadata read statically from its source. A unit
// whose factory is missing, raises, or returns something that is not a
// component is left out. Neither case stops discovery.
//
// # Enablement
//
// The enabled set is a list of names kept by an EnablementStore. It may
// name components that are not currently available; those are ignored by
// EnabledComponents and preserved by SaveConfig.
package plugin
