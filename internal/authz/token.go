package authz

import "strings"

// Permission tokens take the form "namespace:action", e.g. "customer:read".
// A held token ending in ":*" grants every action in its namespace. Tokens
// are case-sensitive and compared exactly apart from the trailing wildcard.
const (
	// PlatformNamespace is reserved for permissions evaluated without any
	// company scope. Every other namespace is a company permission.
	PlatformNamespace = "platform"

	// GrantAll is the sentinel a platform role may carry in its company
	// permission set. Inside an active company context it stands for every
	// company permission. It never grants platform permissions.
	GrantAll = "*"
)

// Namespace returns the token's namespace: the substring before the last
// colon. Tokens without a colon have an empty namespace and match nothing.
func Namespace(token string) string {
	i := strings.LastIndex(token, ":")
	if i < 0 {
		return ""
	}
	return token[:i]
}

// WellFormed reports whether the token parses as "namespace:action" with a
// non-empty namespace and action. The action may be the "*" wildcard. The
// bare GrantAll sentinel is not a token and fails this check.
func WellFormed(token string) bool {
	ns := Namespace(token)
	if ns == "" {
		return false
	}
	action := token[len(ns)+1:]
	return action != "" && !strings.Contains(ns, " ") && !strings.Contains(action, " ")
}

// IsPlatform reports whether the token lives in the reserved platform
// namespace.
func IsPlatform(token string) bool {
	return Namespace(token) == PlatformNamespace
}

// Satisfies reports whether a single held token grants the required token.
// Exact match wins; otherwise a held "ns:*" wildcard grants any action in
// ns. Wildcards never cross namespaces and a specific token never implies
// the wildcard.
func Satisfies(held, required string) bool {
	if held == required {
		return true
	}
	if strings.HasSuffix(held, ":*") {
		return held[:len(held)-2] == Namespace(required)
	}
	return false
}

// TokenSet is an evaluated permission set. Union semantics only: holding
// any member that satisfies a required token is sufficient.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from the given tokens.
func NewTokenSet(tokens ...string) TokenSet {
	set := make(TokenSet, len(tokens))
	set.Add(tokens...)
	return set
}

// Add unions the given tokens into the set.
func (s TokenSet) Add(tokens ...string) {
	for _, t := range tokens {
		if t == "" {
			continue
		}
		s[t] = struct{}{}
	}
}

// Satisfies reports whether any member of the set grants the required
// token. The GrantAll sentinel grants every company permission but never a
// platform one.
func (s TokenSet) Satisfies(required string) bool {
	if _, ok := s[GrantAll]; ok && !IsPlatform(required) {
		return true
	}
	for held := range s {
		if Satisfies(held, required) {
			return true
		}
	}
	return false
}

// SatisfiesAll reports whether every required token is granted.
func (s TokenSet) SatisfiesAll(required []string) bool {
	for _, t := range required {
		if !s.Satisfies(t) {
			return false
		}
	}
	return true
}

// SatisfiesAny reports whether at least one required token is granted.
func (s TokenSet) SatisfiesAny(required []string) bool {
	for _, t := range required {
		if s.Satisfies(t) {
			return true
		}
	}
	return false
}

// Tokens returns the members as a slice, for handlers that list grants.
func (s TokenSet) Tokens() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}
