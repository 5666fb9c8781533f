// Package auth implements the identity side of the service: credential
// verification against a hashed, read-only table, issuing and validating
// signed role tokens, and the role allow-list that gates partition access.
package auth

import (
	"errors"
	"sort"
)

// ErrForbidden is returned by Policy.Authorize for roles outside the allow-list.
var ErrForbidden = errors.New("auth: role is not permitted")

// DefaultRoles is the closed role enumeration. It is the single source for
// every entry point (HTTP handlers, CLI, and the index builder).
var DefaultRoles = []string{"engineering", "hr", "finance", "marketing", "general"}

// Policy is the shared role allow-list. It is immutable after construction.
type Policy struct {
	allowed map[string]struct{}
}

// NewPolicy returns a Policy allowing exactly roles. Empty names are ignored.
func NewPolicy(roles ...string) *Policy {
	p := &Policy{allowed: make(map[string]struct{}, len(roles))}
	for _, r := range roles {
		if r != "" {
			p.allowed[r] = struct{}{}
		}
	}
	return p
}

// DefaultPolicy returns a Policy over DefaultRoles.
func DefaultPolicy() *Policy { return NewPolicy(DefaultRoles...) }

// Authorize returns nil if role is in the allow-list and ErrForbidden
// otherwise. It must only be called with a role taken from a validated token.
func (p *Policy) Authorize(role string) error {
	if _, ok := p.allowed[role]; !ok {
		return ErrForbidden
	}
	return nil
}

// Roles returns the allowed roles in sorted order.
func (p *Policy) Roles() []string {
	out := make([]string, 0, len(p.allowed))
	for r := range p.allowed {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
