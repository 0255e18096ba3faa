// Package trust implements the Trust Cache: the store of previously
// granted tool/scope permissions consulted before the Permission Gate
// asks the user again. Grounded on the teacher's session-permission
// pattern matching in internal/config/permission.go (BuildRule,
// MatchRule, session.AllowedPatterns), generalized to the spec's
// explicit {tool, scope} grant shape and three lifetimes (spec.md §4.3,
// §6 "Trust Cache").
package trust

import (
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Lifetime controls how long a grant remains valid.
type Lifetime string

const (
	// Once is consumed by the next matching lookup.
	Once Lifetime = "once"
	// Turn survives until the Turn Controller clears it at the end of
	// SendMessage.
	Turn Lifetime = "turn"
	// Session survives for the process lifetime.
	Session Lifetime = "session"
)

// Grant is one trust entry: tool permitted to act on scope for the
// remainder of Lifetime. Scope is an opaque, tool-defined string (a file
// path, a glob, a bash command prefix, a URL host) matched with
// doublestar glob semantics, mirroring the teacher's "Tool(pattern)"
// rule matching.
type Grant struct {
	Tool     string
	Scope    string
	Lifetime Lifetime
}

// Cache holds grants accumulated across a session, indexed by tool.
type Cache struct {
	mu     sync.RWMutex
	grants map[string][]Grant
}

// New creates an empty Trust Cache.
func New() *Cache {
	return &Cache{grants: make(map[string][]Grant)}
}

// Grant records a new grant. A later grant is not deduplicated against
// an identical earlier one; both are matched, the most specific (longest
// Scope pattern) winning ties in Lookup.
func (c *Cache) Grant(g Grant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants[g.Tool] = append(c.grants[g.Tool], g)
}

// Lookup reports whether tool is trusted against scope, returning the
// matching grant. Among grants that match, the one with the longest
// (most specific) Scope pattern wins (spec.md §4.3 "most-specific-match
// lookup"); ties prefer the most recently granted. A matched Once grant
// is consumed (removed) before returning.
func (c *Cache) Lookup(tool, scope string) (Grant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidates := c.grants[tool]
	bestIdx := -1
	for i, g := range candidates {
		if !scopeMatches(scope, g.Scope) {
			continue
		}
		if bestIdx == -1 || len(g.Scope) >= len(candidates[bestIdx].Scope) {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return Grant{}, false
	}

	best := candidates[bestIdx]
	if best.Lifetime == Once {
		c.grants[tool] = append(candidates[:bestIdx:bestIdx], candidates[bestIdx+1:]...)
	}
	return best, true
}

func scopeMatches(scope, pattern string) bool {
	if pattern == "" || pattern == "**" {
		return true
	}
	if pattern == scope {
		return true
	}
	ok, err := doublestar.Match(pattern, scope)
	return err == nil && ok
}

// ClearTurn drops every Turn-lifetime grant. Called by the Turn
// Controller at the end of each turn (spec.md §4.8).
func (c *Cache) ClearTurn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tool, grants := range c.grants {
		kept := grants[:0:0]
		for _, g := range grants {
			if g.Lifetime != Turn {
				kept = append(kept, g)
			}
		}
		if len(kept) == 0 {
			delete(c.grants, tool)
		} else {
			c.grants[tool] = kept
		}
	}
}

// ClearAll drops every grant regardless of lifetime.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants = make(map[string][]Grant)
}

// Snapshot returns a flat copy of every live grant, for session
// persistence.
func (c *Cache) Snapshot() []Grant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Grant
	for _, grants := range c.grants {
		out = append(out, grants...)
	}
	return out
}

// Restore replaces cache contents with a previously captured snapshot.
func (c *Cache) Restore(grants []Grant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grants = make(map[string][]Grant)
	for _, g := range grants {
		c.grants[g.Tool] = append(c.grants[g.Tool], g)
	}
}
