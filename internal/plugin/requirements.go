package plugin

import (
	"strings"

	plua "github.com/dshills/agentdeck/internal/plugin/lua"
)

// Checker reports which declared requirements cannot be loaded.
type Checker struct {
	resolver *plua.Resolver
}

// NewChecker creates a checker over resolver.
func NewChecker(resolver *plua.Resolver) *Checker {
	if resolver == nil {
		resolver = plua.NewResolver(nil)
	}
	return &Checker{resolver: resolver}
}

// Missing returns, in order, the names in reqs that the resolver cannot
// find right now. Results are never cached.
func (c *Checker) Missing(reqs []string) []string {
	missing := []string{}
	for _, req := range reqs {
		if !c.resolver.Resolve(strings.TrimSpace(req)) {
			missing = append(missing, req)
		}
	}
	return missing
}
