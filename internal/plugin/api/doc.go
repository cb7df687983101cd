// Package api provides the Go-implemented Lua modules that plugin units
// load with require:
//
//   - component: the BaseComponent class every component extends
//   - llm: ask and conversation helpers backed by the configured provider
//   - artifacts: the generated-file store
//   - config: keyed settings lookup and registration
//
// Each module implements Module and is added to a Registry. The registry
// is the ModuleSet consulted by the module resolver, and StateOptions
// preloads every module into a new plugin state:
//
//	reg := api.NewRegistry()
//	reg.Register(api.NewComponentModule())
//	reg.Register(api.NewConfigModule(cfg))
//
//	state, err := plua.NewState(reg.StateOptions()...)
//
// Module functions run on the goroutine that owns the calling state and
// take their context from it, so a cancelled render also cancels an
// in-flight LLM request.
package api
