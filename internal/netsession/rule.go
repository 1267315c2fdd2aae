package netsession

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// errBadPattern is returned for URL patterns that are not <scheme>://<host>/<path>.
var errBadPattern = errors.New("url pattern must look like <scheme>://<host>/<path>")

// urlPattern matches request URLs in the "*://*.example.com/*" notation.
type urlPattern struct {
	// source is the original pattern text.
	source string
	// scheme matches the URL scheme, "*" means http or https.
	scheme glob.Glob
	// hosts match the hostname; "*.example.com" also matches "example.com".
	hosts []glob.Glob
	// path matches the URL path.
	path glob.Glob
}

// HeaderRemovalRule removes headers from requests whose URL matches one of its patterns.
type HeaderRemovalRule struct {
	// name identifies the rule inside a session.
	name string
	// patterns select the requests the rule applies to.
	patterns []*urlPattern
	// headers are removed from matching requests.
	headers []string
	// key identifies the policy: name, patterns and headers.
	key string
}

// NewHeaderRemovalRule compiles a rule that drops headers from requests matching any of the patterns.
func NewHeaderRemovalRule(name string, patterns []string, headers ...string) (*HeaderRemovalRule, error) {
	rule := &HeaderRemovalRule{
		name:     name,
		patterns: make([]*urlPattern, 0, len(patterns)),
		headers:  make([]string, 0, len(headers)),
	}

	for _, source := range patterns {
		pattern, err := compilePattern(source)
		if err != nil {
			return nil, err
		}

		rule.patterns = append(rule.patterns, pattern)
	}

	for _, header := range headers {
		rule.headers = append(rule.headers, http.CanonicalHeaderKey(header))
	}

	rule.key = policyKey(name, patterns, rule.headers)

	return rule, nil
}

// Name returns the rule name.
func (r *HeaderRemovalRule) Name() string {
	return r.name
}

// Matches reports whether the rule applies to the provided URL.
func (r *HeaderRemovalRule) Matches(u *url.URL) bool {
	if u == nil {
		return false
	}

	for _, pattern := range r.patterns {
		if pattern.match(u) {
			return true
		}
	}

	return false
}

// Apply returns the request with the rule's headers removed when the rule matches.
// The original request is never modified.
func (r *HeaderRemovalRule) Apply(req *http.Request) *http.Request {
	if !r.Matches(req.URL) {
		return req
	}

	present := false

	for _, header := range r.headers {
		if _, ok := req.Header[header]; ok {
			present = true
			break
		}
	}

	if !present {
		return req
	}

	stripped := req.Clone(req.Context())
	for _, header := range r.headers {
		stripped.Header.Del(header)
	}

	return stripped
}

// policyKey is equal for rules that strip the same headers from the same destinations.
func policyKey(name string, patterns, headers []string) string {
	sortedPatterns := slices.Clone(patterns)
	slices.Sort(sortedPatterns)

	sortedHeaders := slices.Clone(headers)
	slices.Sort(sortedHeaders)

	return name + "\x00" + strings.Join(sortedPatterns, "\x1f") + "\x00" + strings.Join(sortedHeaders, "\x1f")
}

// compilePattern parses "<scheme>://<host>/<path>" into globs.
func compilePattern(source string) (*urlPattern, error) {
	scheme, rest, ok := strings.Cut(source, "://")
	if !ok || scheme == "" || rest == "" {
		return nil, fmt.Errorf("%q: %w", source, errBadPattern)
	}

	host, path, ok := strings.Cut(rest, "/")
	if !ok || host == "" {
		return nil, fmt.Errorf("%q: %w", source, errBadPattern)
	}

	if scheme == "*" {
		scheme = "{http,https}"
	}

	schemeGlob, err := glob.Compile(strings.ToLower(scheme))
	if err != nil {
		return nil, fmt.Errorf("scheme of %q: %w", source, err)
	}

	host = strings.ToLower(host)
	hostSources := []string{host}

	if bare, found := strings.CutPrefix(host, "*."); found {
		hostSources = append(hostSources, bare)
	}

	hostGlobs := make([]glob.Glob, 0, len(hostSources))

	for _, hostSource := range hostSources {
		hostGlob, compileErr := glob.Compile(hostSource)
		if compileErr != nil {
			return nil, fmt.Errorf("host of %q: %w", source, compileErr)
		}

		hostGlobs = append(hostGlobs, hostGlob)
	}

	pathGlob, err := glob.Compile("/" + path)
	if err != nil {
		return nil, fmt.Errorf("path of %q: %w", source, err)
	}

	return &urlPattern{
		source: source,
		scheme: schemeGlob,
		hosts:  hostGlobs,
		path:   pathGlob,
	}, nil
}

// match reports whether the URL satisfies every part of the pattern.
func (p *urlPattern) match(u *url.URL) bool {
	if !p.scheme.Match(strings.ToLower(u.Scheme)) {
		return false
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	if !p.path.Match(path) {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	for _, host := range p.hosts {
		if host.Match(hostname) {
			return true
		}
	}

	return false
}
