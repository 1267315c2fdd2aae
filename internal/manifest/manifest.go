package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-resolver/internal/domain/release"
)

var (
	// errEmptyManifest is returned for manifests without any content.
	errEmptyManifest = errors.New("manifest is empty")
	// errVersionMissing is returned when the version field is absent.
	errVersionMissing = errors.New("manifest doesn't contain version")
	// errVersionInvalid is returned when the version is not a semantic version.
	errVersionInvalid = errors.New("manifest version is not a semantic version")
	// errPathMissing is returned when the artifact path is absent.
	errPathMissing = errors.New("manifest doesn't contain file path")
	// errURLMissing is returned when the artifact URL is absent on self-referencing platforms.
	errURLMissing = errors.New("manifest doesn't contain url")
)

// Raw is the wire form of a manifest. JSON and YAML share field names.
type Raw struct {
	// Version is the semantic version of the release.
	Version string `json:"version" yaml:"version"`
	// Path is the primary artifact file path.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// URL names the primary artifact on self-referencing platforms.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// SHA2 is the hex SHA-256 checksum of the primary artifact.
	SHA2 string `json:"sha2,omitempty" yaml:"sha2,omitempty"`
	// SHA512 is the base64 SHA-512 checksum of the primary artifact.
	SHA512 string `json:"sha512,omitempty" yaml:"sha512,omitempty"`
	// GithubArtifactName overrides the asset name derived from Path.
	GithubArtifactName string `json:"githubArtifactName,omitempty" yaml:"githubArtifactName,omitempty"`
	// ReleaseName is the release title.
	ReleaseName string `json:"releaseName,omitempty" yaml:"releaseName,omitempty"`
	// ReleaseNotes is the release description.
	ReleaseNotes string `json:"releaseNotes,omitempty" yaml:"releaseNotes,omitempty"`
	// ReleaseDate is the publication timestamp.
	ReleaseDate string `json:"releaseDate,omitempty" yaml:"releaseDate,omitempty"`
}

// DecodeJSON parses an object-notation manifest.
func DecodeJSON(data []byte) (*Raw, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyManifest
	}

	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode json manifest: %w", err)
	}

	return &raw, nil
}

// DecodeYAML parses a line-oriented structured-config manifest.
func DecodeYAML(data []byte) (*Raw, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyManifest
	}

	var raw Raw
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml manifest: %w", err)
	}

	return &raw, nil
}

// Validator checks a decoded manifest before it is accepted.
type Validator interface {
	Validate(raw *Raw, platform Platform) error
}

// SchemaValidator enforces the fields every published manifest must carry.
type SchemaValidator struct{}

// Validate requires a semantic version, plus a URL on self-referencing platforms
// and a file path everywhere else.
func (SchemaValidator) Validate(raw *Raw, platform Platform) error {
	if raw == nil {
		return errEmptyManifest
	}

	version := strings.TrimSpace(raw.Version)
	if version == "" {
		return errVersionMissing
	}

	if _, err := semver.NewVersion(version); err != nil {
		return fmt.Errorf("%q: %w: %w", version, errVersionInvalid, err)
	}

	if platform.SelfReference {
		if strings.TrimSpace(raw.URL) == "" {
			return errURLMissing
		}

		return nil
	}

	if strings.TrimSpace(raw.Path) == "" {
		return errPathMissing
	}

	return nil
}

// Build turns a validated raw manifest into the immutable domain value.
// manifestURL is attached only for self-referencing platforms.
func Build(raw *Raw, platform Platform, assets []release.Asset, manifestURL string) *release.Manifest {
	result := &release.Manifest{
		Version:      strings.TrimSpace(raw.Version),
		Path:         raw.Path,
		URL:          raw.URL,
		SHA2:         raw.SHA2,
		SHA512:       raw.SHA512,
		ArtifactName: raw.GithubArtifactName,
		ReleaseName:  raw.ReleaseName,
		ReleaseNotes: raw.ReleaseNotes,
		ReleaseDate:  raw.ReleaseDate,
		Assets:       slices.Clone(assets),
	}

	if platform.SelfReference {
		result.ManifestURL = manifestURL
	}

	return result
}
