package provider

import (
	"context"
	"errors"
	"net/url"

	"github.com/samber/lo"

	"github.com/oshokin/release-resolver/internal/domain/release"
	"github.com/oshokin/release-resolver/internal/logger"
)

// locateLatestRelease returns the assets of the newest published release.
// Any failure other than cancellation means there is no release to update from.
func (p *Provider) locateLatestRelease(ctx context.Context) ([]release.Asset, error) {
	requestURL := p.host.LatestReleaseURL(p.owner, p.repo)

	logger.DebugKV(ctx, "Looking up the latest release", "url", requestURL)

	assets, err := p.host.LatestRelease(ctx, p.owner, p.repo)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, &ReleaseNotFoundError{
			URL: requestURL,
			Err: err,
		}
	}

	usable := lo.Filter(assets, func(asset release.Asset, _ int) bool {
		if asset.Name == "" {
			return false
		}

		u, parseErr := url.Parse(asset.URL)

		return parseErr == nil && u.IsAbs() && u.Host != ""
	})

	if skipped := len(assets) - len(usable); skipped > 0 {
		logger.WarnKV(ctx, "Skipped release assets without a name or a valid URL", "count", skipped)
	}

	logger.DebugKV(ctx, "Found the latest release", "assets", len(usable))

	return usable, nil
}
