package provider

import (
	"context"
	"errors"

	"github.com/oshokin/release-resolver/internal/domain/release"
	"github.com/oshokin/release-resolver/internal/logger"
)

// errManifestRequired is returned when no manifest is passed for resolution.
var errManifestRequired = errors.New("manifest is required")

// resolveArtifact maps the manifest's primary artifact onto its release asset.
// The result depends only on the manifest, so repeated calls return equal descriptors.
func (p *Provider) resolveArtifact(ctx context.Context, m *release.Manifest) (*release.Artifact, error) {
	if m == nil {
		return nil, errManifestRequired
	}

	name := p.platform.ArtifactName(m)

	asset, found := m.FindAsset(name)
	if !found {
		panic(&AssetResolutionError{Name: name, Version: m.Version})
	}

	downloadURL := asset.URL

	if p.platform.SelfReference {
		// Point at the host so the token is honored on the first hop.
		rebased, err := p.onHost(asset.URL)
		if err != nil {
			return nil, err
		}

		downloadURL = rebased
	}

	logger.DebugKV(ctx, "Resolved the update file", "name", name, "url", downloadURL)

	return &release.Artifact{
		Name:      name,
		URL:       downloadURL,
		SHA2:      m.SHA2,
		SHA512:    m.SHA512,
		Headers:   p.authHeaders(),
		Partition: p.session.Partition(),
	}, nil
}
