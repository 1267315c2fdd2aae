package manifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-resolver/internal/domain/release"
)

const (
	yamlManifest = `version: 1.2.0
path: My App Setup 1.2.0.exe
sha2: 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08
releaseDate: '2024-05-01T10:00:00.000Z'
releaseName: Spring
`

	jsonManifest = `{
  "version": "1.2.0",
  "path": "My App Setup 1.2.0.exe",
  "sha2": "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
  "releaseDate": "2024-05-01T10:00:00.000Z",
  "releaseName": "Spring"
}`
)

// TestDecode_FormatsAreEquivalent ensures JSON and YAML manifests with equal fields build equal values.
func TestDecode_FormatsAreEquivalent(t *testing.T) {
	t.Parallel()

	assets := []release.Asset{{Name: "My-App-Setup-1.2.0.exe", URL: "https://api.github.com/repos/acme/app/releases/assets/42"}}

	fromYAML, err := DecodeYAML([]byte(yamlManifest))
	require.NoError(t, err)

	fromJSON, err := DecodeJSON([]byte(jsonManifest))
	require.NoError(t, err)

	require.NoError(t, SchemaValidator{}.Validate(fromYAML, Windows))
	require.NoError(t, SchemaValidator{}.Validate(fromJSON, Windows))

	left := Build(fromYAML, Windows, assets, "")
	right := Build(fromJSON, Darwin, assets, "https://api.github.com/repos/acme/app/releases/assets/1")

	diff := cmp.Diff(left, right, cmpopts.IgnoreFields(release.Manifest{}, "ManifestURL"))
	require.Empty(t, diff)
	require.Empty(t, left.ManifestURL)
	require.Equal(t, "https://api.github.com/repos/acme/app/releases/assets/1", right.ManifestURL)
}

// TestPlatform_Decode dispatches on the platform format, not on the content.
func TestPlatform_Decode(t *testing.T) {
	t.Parallel()

	raw, err := Darwin.Decode([]byte(`{"version": "2.0.0", "url": "https://example.com/App-2.0.0-mac.zip"}`))
	require.NoError(t, err)
	require.Equal(t, "2.0.0", raw.Version)

	// A YAML document is not valid JSON.
	_, err = Darwin.Decode([]byte(yamlManifest))
	require.Error(t, err)

	raw, err = Linux.Decode([]byte(yamlManifest))
	require.NoError(t, err)
	require.Equal(t, "My App Setup 1.2.0.exe", raw.Path)

	_, err = Windows.Decode([]byte("   \n"))
	require.ErrorIs(t, err, errEmptyManifest)
}

// TestSchemaValidator_Validate covers required fields per platform.
func TestSchemaValidator_Validate(t *testing.T) {
	t.Parallel()

	validator := SchemaValidator{}

	require.ErrorIs(t, validator.Validate(nil, Linux), errEmptyManifest)
	require.ErrorIs(t, validator.Validate(&Raw{Path: "a.exe"}, Windows), errVersionMissing)
	require.ErrorIs(t, validator.Validate(&Raw{Version: "latest", Path: "a.exe"}, Windows), errVersionInvalid)
	require.ErrorIs(t, validator.Validate(&Raw{Version: "1.2.0"}, Windows), errPathMissing)
	require.ErrorIs(t, validator.Validate(&Raw{Version: "1.2.0", Path: "a.exe"}, Darwin), errURLMissing)
	require.NoError(t, validator.Validate(&Raw{Version: "1.2.0", URL: "https://x/a.zip"}, Darwin))
	require.NoError(t, validator.Validate(&Raw{Version: "1.2.0-beta.1", Path: "a.AppImage"}, Linux))
}

// TestPlatform_ChannelFilename checks manifest names per platform.
func TestPlatform_ChannelFilename(t *testing.T) {
	t.Parallel()

	require.Equal(t, "latest.yml", Windows.ChannelFilename("latest"))
	require.Equal(t, "latest.yml", Linux.ChannelFilename("latest"))
	require.Equal(t, "beta.yml", Linux.ChannelFilename("beta"))
	require.Equal(t, "latest-mac.json", Darwin.ChannelFilename("latest"))
}

// TestPlatformFor maps GOOS values onto strategies.
func TestPlatformFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, Darwin, PlatformFor("darwin"))
	require.Equal(t, Windows, PlatformFor("Windows"))
	require.Equal(t, Linux, PlatformFor("linux"))
	require.Equal(t, Linux, PlatformFor("freebsd"))
}

// TestPlatform_ArtifactName covers the naming rules of both platform families.
func TestPlatform_ArtifactName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "My-App.exe", Windows.ArtifactName(&release.Manifest{Path: "My App.exe"}))
	require.Equal(t, "My-App-Setup.exe", Windows.ArtifactName(&release.Manifest{Path: `dist\My App Setup.exe`}))
	require.Equal(t, "custom.exe", Windows.ArtifactName(&release.Manifest{Path: "My App.exe", ArtifactName: "custom.exe"}))
	require.Equal(t, "App-1.2.0-mac.zip", Darwin.ArtifactName(&release.Manifest{
		URL:          "https://github.com/acme/app/releases/download/v1.2.0/App-1.2.0-mac.zip",
		ArtifactName: "ignored.zip",
	}))
	require.Equal(t, "My%2BApp.zip", Darwin.ArtifactName(&release.Manifest{
		URL: "https://github.com/acme/app/releases/download/v1.0.0/My%2BApp.zip",
	}))
	require.Equal(t, "App.zip", Darwin.ArtifactName(&release.Manifest{
		URL: "https://uploads.example.com/acme/App.zip?token=abc#top",
	}))
	require.Equal(t, "App.zip", Darwin.ArtifactName(&release.Manifest{URL: "App.zip"}))
}

// TestPlatformEncode renders manifests that decode back in the same platform format.
func TestPlatformEncode(t *testing.T) {
	t.Parallel()

	raw := &Raw{
		Version:     "1.2.0",
		Path:        "My App.exe",
		URL:         "https://github.com/acme/app/releases/download/v1.2.0/MyApp-1.2.0-mac.zip",
		SHA512:      "c2hh",
		ReleaseDate: "2024-05-01T10:00:00.000Z",
	}

	for _, platform := range []Platform{Darwin, Windows, Linux} {
		data, err := platform.Encode(raw)
		require.NoError(t, err, platform.Name)

		decoded, err := platform.Decode(data)
		require.NoError(t, err, platform.Name)
		require.Equal(t, raw, decoded, platform.Name)
	}
}
