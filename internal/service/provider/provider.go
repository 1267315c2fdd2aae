package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/oshokin/release-resolver/internal/config"
	"github.com/oshokin/release-resolver/internal/domain/release"
	"github.com/oshokin/release-resolver/internal/manifest"
	"github.com/oshokin/release-resolver/internal/netsession"
	"github.com/oshokin/release-resolver/internal/transport"
)

// ReleaseHost is the transport the provider uses to reach the release host.
type ReleaseHost interface {
	// LatestReleaseURL returns the URL LatestRelease requests.
	LatestReleaseURL(owner, repo string) string
	// LatestRelease returns the assets of the newest published release.
	LatestRelease(ctx context.Context, owner, repo string) ([]release.Asset, error)
	// Download fetches rawURL with the provided Accept header.
	Download(ctx context.Context, rawURL, accept string) ([]byte, error)
}

// Provider resolves updates from a private release host.
// It is safe for concurrent use; Close releases its header removal rule.
type Provider struct {
	// owner is the repository owner.
	owner string
	// repo is the repository name.
	repo string
	// baseURL is the protocol and host of the release API.
	baseURL string
	// token is the access token sent to the release host.
	token string
	// channel selects the manifest file.
	channel string
	// timeout bounds artifact downloads made through the provider.
	timeout time.Duration
	// platform is the manifest strategy picked at construction.
	platform manifest.Platform
	// host performs the release host requests.
	host ReleaseHost
	// validator checks decoded manifests.
	validator manifest.Validator
	// session is the isolated network context of all release traffic.
	session *netsession.Session
	// rule strips the token from requests to storage domains.
	rule *netsession.HeaderRemovalRule
	// releaseRule deregisters rule from session.
	releaseRule func()
	// closeOnce guards releaseRule.
	closeOnce sync.Once
}

// Option configures a provider.
type Option func(*Provider)

// WithReleaseHost replaces the go-github based transport.
func WithReleaseHost(host ReleaseHost) Option {
	return func(p *Provider) {
		if host != nil {
			p.host = host
		}
	}
}

// WithValidator replaces the manifest schema validator.
func WithValidator(validator manifest.Validator) Option {
	return func(p *Provider) {
		if validator != nil {
			p.validator = validator
		}
	}
}

// WithPlatform replaces the strategy derived from the configuration.
func WithPlatform(platform manifest.Platform) Option {
	return func(p *Provider) {
		p.platform = platform
	}
}

// WithHeaderRemovalRule replaces the rule built from the configured storage patterns.
func WithHeaderRemovalRule(rule *netsession.HeaderRemovalRule) Option {
	return func(p *Provider) {
		if rule != nil {
			p.rule = rule
		}
	}
}

// CredentialRuleName names the token stripping rule inside a session.
const CredentialRuleName = "strip-release-credentials"

// errConfigRequired is returned when no configuration is provided.
var errConfigRequired = errors.New("configuration is required")

// New creates a provider and registers its header removal rule on the configured partition.
func New(cfg *config.Config, opts ...Option) (*Provider, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	platform := manifest.Current()
	if cfg.Platform != "" {
		platform = manifest.PlatformFor(cfg.Platform)
	}

	p := &Provider{
		owner:     cfg.Owner,
		repo:      cfg.Repo,
		baseURL:   cfg.BaseURL(),
		token:     cfg.Token,
		channel:   cfg.Channel,
		timeout:   cfg.Timeout,
		platform:  platform,
		validator: manifest.SchemaValidator{},
		session:   netsession.FromPartition(cfg.Partition),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.rule == nil {
		rule, err := netsession.NewHeaderRemovalRule(CredentialRuleName, cfg.StoragePatterns, "Authorization")
		if err != nil {
			return nil, fmt.Errorf("compile storage patterns: %w", err)
		}

		p.rule = rule
	}

	if p.host == nil {
		client, err := transport.New(transport.Options{
			BaseURL: p.baseURL,
			Token:   p.token,
			Session: p.session,
			Timeout: p.timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create release host client: %w", err)
		}

		p.host = client
	}

	p.releaseRule = p.session.Register(p.rule)

	return p, nil
}

// Close removes the provider's header removal rule from the shared session.
// Other providers on the same partition keep the rule active.
func (p *Provider) Close() error {
	p.closeOnce.Do(p.releaseRule)

	return nil
}

// Platform returns the manifest strategy used by the provider.
func (p *Provider) Platform() manifest.Platform {
	return p.platform
}

// Partition returns the name of the isolated network context the provider uses.
func (p *Provider) Partition() string {
	return p.session.Partition()
}

// GetLatestVersion returns the validated manifest of the newest release with its asset list attached.
func (p *Provider) GetLatestVersion(ctx context.Context) (*release.Manifest, error) {
	return p.fetchManifest(ctx)
}

// GetUpdateFile returns the descriptor of the manifest's primary artifact.
// It panics with *AssetResolutionError when the manifest and its asset list disagree.
func (p *Provider) GetUpdateFile(ctx context.Context, m *release.Manifest) (*release.Artifact, error) {
	return p.resolveArtifact(ctx, m)
}

// HTTPClient returns a client that routes requests through the provider's isolated network context.
func (p *Provider) HTTPClient() *http.Client {
	return p.session.Client(p.timeout)
}

// authHeaders returns the headers an artifact download must carry.
func (p *Provider) authHeaders() map[string]string {
	return map[string]string{
		"Accept":        transport.AcceptBinary,
		"Authorization": transport.TokenScheme + " " + p.token,
	}
}
