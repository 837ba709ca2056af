// Package protect - Protected-set evaluation
// Consolidates the exemption rules into one pure predicate. Protected
// resources are never mutated regardless of utilization.
package protect

import (
	"strings"

	"dbtier/core/types"
)

// RuleSet declares which resources are exempt from tier changes.
// Matching is case-insensitive; provider resource names are not
// case-sensitive.
type RuleSet struct {
	// IDs lists exact resource identifiers
	IDs []types.ResourceID `json:"ids,omitempty"`

	// ServerPrefixes exempts every database on servers whose name
	// starts with one of these prefixes
	ServerPrefixes []string `json:"server_prefixes,omitempty"`

	// NameContains exempts resources whose server or database name
	// contains one of these substrings
	NameContains []string `json:"name_contains,omitempty"`
}

// Match reports whether a resource is protected. Pure predicate; no
// side effects.
func (r RuleSet) Match(id types.ResourceID) bool {
	server := strings.ToLower(id.Server)
	database := strings.ToLower(id.Database)

	for _, p := range r.IDs {
		if strings.EqualFold(p.Subscription, id.Subscription) &&
			strings.EqualFold(p.Server, id.Server) &&
			strings.EqualFold(p.Database, id.Database) {
			return true
		}
	}
	for _, prefix := range r.ServerPrefixes {
		if prefix != "" && strings.HasPrefix(server, strings.ToLower(prefix)) {
			return true
		}
	}
	for _, sub := range r.NameContains {
		if sub == "" {
			continue
		}
		needle := strings.ToLower(sub)
		if strings.Contains(server, needle) || strings.Contains(database, needle) {
			return true
		}
	}
	return false
}

// Empty reports whether the rule set contains no rules
func (r RuleSet) Empty() bool {
	return len(r.IDs) == 0 && len(r.ServerPrefixes) == 0 && len(r.NameContains) == 0
}
