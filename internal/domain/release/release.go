package release

import (
	"maps"
	"slices"

	"github.com/samber/lo"
)

// Asset is one file attached to a published release.
type Asset struct {
	// Name is the stable asset file name, e.g. latest.yml.
	Name string
	// URL is the host-issued API download URL of the asset.
	URL string
}

// Manifest is the validated "latest version" metadata of a release.
// It is built once per update check and never mutated afterwards.
type Manifest struct {
	// Version is the semantic version of the newest release.
	Version string
	// Path is the primary artifact file path recorded by the publisher.
	Path string
	// URL names the primary artifact by URL on self-referencing platforms.
	URL string
	// SHA2 is the optional hex SHA-256 checksum of the primary artifact.
	SHA2 string
	// SHA512 is the optional base64 SHA-512 checksum of the primary artifact.
	SHA512 string
	// ArtifactName overrides the asset name derived from Path.
	ArtifactName string
	// ReleaseName is the optional human-readable release title.
	ReleaseName string
	// ReleaseNotes is the optional release description.
	ReleaseNotes string
	// ReleaseDate is the optional publication timestamp as written by the publisher.
	ReleaseDate string
	// ManifestURL is the manifest's own authenticated location.
	// Set only on platforms whose installer re-reads the manifest.
	ManifestURL string
	// Assets is the asset list of the release the manifest was resolved against.
	Assets []Asset
}

// FindAsset returns the asset with exactly the provided name.
func (m *Manifest) FindAsset(name string) (Asset, bool) {
	return lo.Find(m.Assets, func(a Asset) bool {
		return a.Name == name
	})
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}

	cloned := *m
	cloned.Assets = slices.Clone(m.Assets)

	return &cloned
}

// Artifact is the ready-to-fetch description of the binary to download.
type Artifact struct {
	// Name is the resolved asset name.
	Name string
	// URL is the authenticated download URL of the asset.
	URL string
	// SHA2 is copied from the manifest when present.
	SHA2 string
	// SHA512 is copied from the manifest when present.
	SHA512 string
	// Headers must be sent with the download request.
	Headers map[string]string
	// Partition names the isolated network context the download must go through.
	Partition string
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}

	cloned := *a
	cloned.Headers = maps.Clone(a.Headers)

	return &cloned
}
