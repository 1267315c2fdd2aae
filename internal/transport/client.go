package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/samber/lo"
	"golang.org/x/oauth2"

	"github.com/oshokin/release-resolver/internal/domain/release"
	"github.com/oshokin/release-resolver/internal/netsession"
	"github.com/oshokin/release-resolver/internal/version"
)

const (
	// TokenScheme prefixes the credential in the Authorization header.
	TokenScheme = "token"

	// AcceptAPI is the media type of release API documents.
	AcceptAPI = "application/vnd.github.v3+json"

	// AcceptBinary asks the host for the raw asset bytes instead of its metadata.
	AcceptBinary = "application/octet-stream"
)

var (
	// errSessionRequired is returned when no isolated network context is provided.
	errSessionRequired = errors.New("network session is required")
	// errTokenRequired is returned when no access token is provided.
	errTokenRequired = errors.New("access token is required")
)

// Options configures a release host client.
type Options struct {
	// BaseURL is the protocol and host of the release API, e.g. https://api.github.com.
	BaseURL string
	// Token grants read access to private release data.
	Token string
	// Session is the isolated network context every hop goes through.
	Session *netsession.Session
	// Timeout bounds a single exchange including redirects. Zero means no limit.
	Timeout time.Duration
}

// Client performs authenticated requests against the release host.
type Client struct {
	// api is the go-github client bound to the authenticated HTTP client.
	api *github.Client
}

// New creates a client whose requests to the release API carry the token.
// Every hop passes through the session, whose rules apply on top.
func New(opts Options) (*Client, error) {
	if opts.Session == nil {
		return nil, errSessionRequired
	}

	if opts.Token == "" {
		return nil, errTokenRequired
	}

	baseURL, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := opts.Session.Client(opts.Timeout)
	httpClient.Transport = &hostScoped{
		host: baseURL.Host,
		auth: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: opts.Token,
				TokenType:   TokenScheme,
			}),
			Base: httpClient.Transport,
		},
		base: httpClient.Transport,
	}

	api := github.NewClient(httpClient)
	api.BaseURL = baseURL
	api.UserAgent = version.UserAgent()

	return &Client{
		api: api,
	}, nil
}

// LatestReleaseURL returns the absolute URL of the "latest release" endpoint.
func (c *Client) LatestReleaseURL(owner, repo string) string {
	return c.api.BaseURL.JoinPath("repos", owner, repo, "releases", "latest").String()
}

// LatestRelease returns the assets attached to the newest published release.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) ([]release.Asset, error) {
	latest, _, err := c.api.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, wrapError(err, c.LatestReleaseURL(owner, repo))
	}

	return lo.Map(latest.Assets, func(asset *github.ReleaseAsset, _ int) release.Asset {
		return release.Asset{
			Name: asset.GetName(),
			URL:  asset.GetURL(),
		}
	}), nil
}

// Download fetches rawURL with the provided Accept header and returns the body.
// Redirects are followed through the session.
func (c *Client) Download(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := c.api.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}

	req.Header.Set("Accept", accept)

	var body bytes.Buffer
	if _, err = c.api.Do(ctx, req, &body); err != nil {
		return nil, wrapError(err, rawURL)
	}

	return body.Bytes(), nil
}
