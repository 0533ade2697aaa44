package accounts

import (
	"path"
	"strings"
)

// BypassRules decides which request paths skip status reconciliation
// entirely. Matching requests perform zero storage reads: login, logout,
// registration, health probes, and static assets have no session to
// reconcile or carry their own admission checks.
type BypassRules struct {
	exact      map[string]struct{}
	prefixes   []string
	extensions map[string]struct{}
}

// DefaultBypassRules covers the auth entry points, the health probe, and
// common static asset locations.
func DefaultBypassRules() *BypassRules {
	return NewBypassRules(
		[]string{"/login", "/logout", "/register", "/health", "/favicon.ico"},
		[]string{"/static/", "/assets/", "/public/"},
		[]string{".css", ".js", ".map", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".woff", ".woff2", ".ttf"},
	)
}

// NewBypassRules builds rules from exact paths, path prefixes, and file
// extensions. All matching is case-sensitive on paths, case-insensitive on
// extensions.
func NewBypassRules(exact, prefixes, extensions []string) *BypassRules {
	rules := &BypassRules{
		exact:      make(map[string]struct{}, len(exact)),
		extensions: make(map[string]struct{}, len(extensions)),
	}

	for _, p := range exact {
		if p = strings.TrimSpace(p); p != "" {
			rules.exact[p] = struct{}{}
		}
	}

	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			rules.prefixes = append(rules.prefixes, p)
		}
	}

	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		rules.extensions[ext] = struct{}{}
	}

	return rules
}

// AddExact registers additional exact-match paths.
func (r *BypassRules) AddExact(paths ...string) *BypassRules {
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			r.exact[p] = struct{}{}
		}
	}
	return r
}

// AddPrefix registers additional path prefixes.
func (r *BypassRules) AddPrefix(prefixes ...string) *BypassRules {
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			r.prefixes = append(r.prefixes, p)
		}
	}
	return r
}

// Matches reports whether the request path is exempt from reconciliation.
func (r *BypassRules) Matches(requestPath string) bool {
	if requestPath == "" {
		return false
	}

	if _, ok := r.exact[requestPath]; ok {
		return true
	}

	for _, prefix := range r.prefixes {
		if strings.HasPrefix(requestPath, prefix) {
			return true
		}
	}

	if ext := strings.ToLower(path.Ext(requestPath)); ext != "" {
		if _, ok := r.extensions[ext]; ok {
			return true
		}
	}

	return false
}
