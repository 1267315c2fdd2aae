package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/samber/lo"

	"github.com/oshokin/release-resolver/internal/domain/release"
	"github.com/oshokin/release-resolver/internal/logger"
	"github.com/oshokin/release-resolver/internal/manifest"
	"github.com/oshokin/release-resolver/internal/transport"
)

// fetchManifest downloads the channel manifest of the latest release, validates it
// and returns it with the release's asset list attached.
func (p *Provider) fetchManifest(ctx context.Context) (*release.Manifest, error) {
	assets, err := p.locateLatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	channelFile := p.platform.ChannelFilename(p.channel)

	asset, found := lo.Find(assets, func(a release.Asset) bool {
		return a.Name == channelFile
	})
	if !found {
		return nil, &ManifestNotFoundError{
			Filename: channelFile,
			URL:      p.host.LatestReleaseURL(p.owner, p.repo),
		}
	}

	logger.DebugKV(ctx, "Downloading the update manifest", "file", channelFile, "url", asset.URL)

	data, err := p.host.Download(ctx, asset.URL, transport.AcceptBinary)
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, &ManifestNotFoundError{
				Filename: channelFile,
				URL:      asset.URL,
				Err:      err,
			}
		}

		return nil, err
	}

	raw, err := p.platform.Decode(data)
	if err != nil {
		return nil, &ManifestValidationError{Filename: channelFile, URL: asset.URL, Err: err}
	}

	if err = p.validator.Validate(raw, p.platform); err != nil {
		return nil, &ManifestValidationError{Filename: channelFile, URL: asset.URL, Err: err}
	}

	var manifestURL string

	if p.platform.SelfReference {
		manifestURL, err = p.onHost(asset.URL)
		if err != nil {
			return nil, err
		}
	}

	result := manifest.Build(raw, p.platform, assets, manifestURL)

	logger.InfoKV(ctx, "Found the latest version", "version", result.Version, "manifest", channelFile)

	return result, nil
}

// onHost returns rawURL's path and query re-rooted at the configured release host.
func (p *Provider) onHost(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse asset url %q: %w", rawURL, err)
	}

	return p.baseURL + u.RequestURI(), nil
}
