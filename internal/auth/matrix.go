package auth

import (
	"path"
	"strings"
)

// Requirement is what a route demands of the caller.
type Requirement struct {
	public bool
	roles  []Role // empty + !public = any authenticated identity
}

// Public lets anonymous callers through.
func Public() Requirement { return Requirement{public: true} }

// Authenticated accepts any bound identity.
func Authenticated() Requirement { return Requirement{} }

// AnyRole accepts an identity whose role is one of roles.
func AnyRole(roles ...Role) Requirement { return Requirement{roles: roles} }

// Check returns nil when the requirement is met, ErrAuthenticationRequired
// when it needs an identity and none is bound, and ErrForbidden when the
// bound identity's role is not allowed.
func (q Requirement) Check(id Identity, authenticated bool) error {
	if q.public {
		return nil
	}
	if !authenticated {
		return ErrAuthenticationRequired
	}
	if len(q.roles) > 0 && !id.HasRole(q.roles...) {
		return ErrForbidden
	}
	return nil
}

func (q Requirement) String() string {
	switch {
	case q.public:
		return "public"
	case len(q.roles) == 0:
		return "authenticated"
	default:
		names := make([]string, len(q.roles))
		for i, r := range q.roles {
			names[i] = string(r)
		}
		return "role in {" + strings.Join(names, ", ") + "}"
	}
}

// Rule pairs a path pattern with its requirement. A pattern ending in "/**"
// matches the prefix itself and everything beneath it; any other pattern
// matches exactly.
type Rule struct {
	Pattern     string
	Requirement Requirement
}

func (r Rule) matches(p string) bool {
	if prefix, ok := strings.CutSuffix(r.Pattern, "/**"); ok {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	return p == r.Pattern
}

// Matrix is an ordered rule list; the first matching rule decides and
// Fallback applies when none match.
type Matrix struct {
	Rules    []Rule
	Fallback Requirement
}

// DefaultMatrix returns the BudgetWise access rules.
func DefaultMatrix() *Matrix {
	return &Matrix{
		Rules: []Rule{
			{Pattern: "/api/auth/**", Requirement: Public()},
			{Pattern: "/api/admin/**", Requirement: AnyRole(RoleAdmin)},
			{Pattern: "/api/reports/**", Requirement: Authenticated()},
			{Pattern: "/api/forum/**", Requirement: Authenticated()},
			{Pattern: "/api/ai/**", Requirement: Authenticated()},
			{Pattern: "/api/transactions/**", Requirement: Authenticated()},
			{Pattern: "/api/goals/**", Requirement: Authenticated()},
			{Pattern: "/api/budgets/**", Requirement: Authenticated()},
			{Pattern: "/api/user/**", Requirement: AnyRole(RoleUser, RoleAdmin)},
		},
		Fallback: Authenticated(),
	}
}

// Requirement returns the requirement governing urlPath. The path is
// cleaned first so "/api/auth/../admin" is judged as "/api/admin".
func (m *Matrix) Requirement(urlPath string) Requirement {
	p := path.Clean("/" + urlPath)
	for _, rule := range m.Rules {
		if rule.matches(p) {
			return rule.Requirement
		}
	}
	return m.Fallback
}

// Authorize decides whether a caller may reach urlPath.
func (m *Matrix) Authorize(urlPath string, id Identity, authenticated bool) error {
	return m.Requirement(urlPath).Check(id, authenticated)
}
