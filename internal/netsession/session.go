package netsession

import (
	"errors"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"
)

// Session is an isolated network context shared by everything using the same partition.
type Session struct {
	// partition is the name the session is registered under.
	partition string
	// base performs the actual network exchange.
	base http.RoundTripper
	// mu protects rules.
	mu sync.RWMutex
	// rules holds the registered header removal rules by policy key.
	rules map[string]*registration
	// order keeps policy keys in registration order.
	order []string
}

// registration counts the holders of a rule so it stays active until the last one releases it.
type registration struct {
	// rule is the registered rule.
	rule *HeaderRemovalRule
	// holders is the number of unreleased registrations.
	holders int
}

// Option adjusts a session when it is created.
type Option func(*Session)

// WithTransport replaces the network transport of a newly created session.
func WithTransport(base http.RoundTripper) Option {
	return func(s *Session) {
		if base != nil {
			s.base = base
		}
	}
}

var (
	// registryMu protects registry.
	//nolint:gochecknoglobals // Sessions are process-wide by partition name.
	registryMu sync.Mutex
	// registry maps partition names to their sessions.
	//nolint:gochecknoglobals // Sessions are process-wide by partition name.
	registry = make(map[string]*Session)
)

// FromPartition returns the session for the partition, creating it on first use.
// Options only take effect when the session is created.
func FromPartition(partition string, options ...Option) *Session {
	registryMu.Lock()
	defer registryMu.Unlock()

	if session, ok := registry[partition]; ok {
		return session
	}

	session := &Session{
		partition: partition,
		base:      NewTransport(TransportOptions{}),
		rules:     make(map[string]*registration),
	}

	for _, option := range options {
		option(session)
	}

	registry[partition] = session

	return session
}

// Partition returns the session's partition name.
func (s *Session) Partition() string {
	return s.partition
}

// Register activates the rule on the session and returns a function releasing it.
// Registering a rule equal to an active one (same name, patterns and headers) does not
// add a second copy; rules differing in any of them are all active side by side.
// A rule is removed once every registration of it has been released.
func (s *Session) Register(rule *HeaderRemovalRule) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rules[rule.key]
	if !ok {
		entry = &registration{rule: rule}
		s.rules[rule.key] = entry
		s.order = append(s.order, rule.key)
	}

	entry.holders++

	var once sync.Once

	return func() {
		once.Do(func() {
			s.release(rule.key)
		})
	}
}

// Rules returns the names of the active rules in registration order.
func (s *Session) Rules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.order))
	for _, key := range s.order {
		names = append(names, s.rules[key].rule.name)
	}

	return names
}

// RoundTrip applies the active rules to the request and sends it.
func (s *Session) RoundTrip(req *http.Request) (*http.Response, error) {
	for _, rule := range s.activeRules() {
		req = rule.Apply(req)
	}

	return s.base.RoundTrip(req)
}

// Client returns an HTTP client whose every hop goes through the session.
func (s *Session) Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport:     s,
		Timeout:       timeout,
		CheckRedirect: limitRedirects(defaultMaxRedirects),
	}
}

// release drops one holder of the rule registered under key.
func (s *Session) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rules[key]
	if !ok {
		return
	}

	entry.holders--
	if entry.holders > 0 {
		return
	}

	delete(s.rules, key)

	s.order = slices.DeleteFunc(s.order, func(k string) bool {
		return k == key
	})
}

// activeRules returns a snapshot of the rules in registration order.
func (s *Session) activeRules() []*HeaderRemovalRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]*HeaderRemovalRule, 0, len(s.order))
	for _, name := range s.order {
		rules = append(rules, s.rules[name].rule)
	}

	return rules
}

// defaultMaxRedirects bounds the redirect chain of session clients.
const defaultMaxRedirects = 10

// TransportOptions configures the network transport of a session.
type TransportOptions struct {
	// DialTimeout is the TCP dial timeout. Default: 30s.
	DialTimeout time.Duration
	// TLSHandshakeTimeout is the TLS handshake timeout. Default: 10s.
	TLSHandshakeTimeout time.Duration
	// ResponseHeaderTimeout is the time to wait for response headers. Default: 30s.
	ResponseHeaderTimeout time.Duration
	// MaxIdleConns is the maximum number of idle connections. Default: 10.
	MaxIdleConns int
	// IdleConnTimeout is how long idle connections stay open. Default: 90s.
	IdleConnTimeout time.Duration
}

// NewTransport creates the transport used by sessions, applying defaults for zero values.
func NewTransport(opts TransportOptions) *http.Transport {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 30 * time.Second
	}

	if opts.TLSHandshakeTimeout == 0 {
		opts.TLSHandshakeTimeout = 10 * time.Second
	}

	if opts.ResponseHeaderTimeout == 0 {
		opts.ResponseHeaderTimeout = 30 * time.Second
	}

	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 10
	}

	if opts.IdleConnTimeout == 0 {
		opts.IdleConnTimeout = 90 * time.Second
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          opts.MaxIdleConns,
		IdleConnTimeout:       opts.IdleConnTimeout,
	}
}

// errTooManyRedirects is returned when a redirect chain exceeds the limit.
var errTooManyRedirects = errors.New("too many redirects")

// limitRedirects creates a redirect checker stopping after maxRedirects hops.
func limitRedirects(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errTooManyRedirects
		}

		return nil
	}
}
