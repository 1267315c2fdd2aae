package manifest

import (
	"encoding/json"
	"path"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-resolver/internal/domain/release"
)

// Format is the encoding of a manifest file.
type Format int

const (
	// FormatYAML is the line-oriented structured-config format.
	FormatYAML Format = iota
	// FormatJSON is the object-notation format.
	FormatJSON
)

// String returns the file extension of the format.
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}

	return "yml"
}

// Platform selects manifest handling for one family of installers.
type Platform struct {
	// Name is the GOOS-style platform name.
	Name string
	// Format is the encoding of the channel manifest.
	Format Format
	// SelfReference marks installers that name the artifact by URL and re-read the manifest themselves.
	SelfReference bool
}

//nolint:gochecknoglobals // Fixed strategies, never modified.
var (
	// Darwin reads a JSON manifest that points at its artifact by URL.
	Darwin = Platform{Name: "darwin", Format: FormatJSON, SelfReference: true}
	// Windows reads a YAML manifest that records the artifact path.
	Windows = Platform{Name: "windows", Format: FormatYAML}
	// Linux reads a YAML manifest that records the artifact path.
	Linux = Platform{Name: "linux", Format: FormatYAML}
)

// PlatformFor returns the strategy for a GOOS value; unknown systems use the Linux strategy.
func PlatformFor(goos string) Platform {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case "darwin", "mac", "macos":
		return Darwin
	case "windows", "win32":
		return Windows
	default:
		return Linux
	}
}

// Current returns the strategy of the running host.
func Current() Platform {
	return PlatformFor(runtime.GOOS)
}

// ChannelFilename returns the manifest asset name for the channel.
func (p Platform) ChannelFilename(channel string) string {
	if p.Format == FormatJSON {
		return channel + "-mac." + p.Format.String()
	}

	return channel + "." + p.Format.String()
}

// Decode parses manifest bytes in the platform's format.
func (p Platform) Decode(data []byte) (*Raw, error) {
	if p.Format == FormatJSON {
		return DecodeJSON(data)
	}

	return DecodeYAML(data)
}

// Encode renders a manifest in the platform's format.
func (p Platform) Encode(raw *Raw) ([]byte, error) {
	if p.Format == FormatJSON {
		return json.MarshalIndent(raw, "", "  ")
	}

	return yaml.Marshal(raw)
}

// ArtifactName returns the release asset name of the manifest's primary artifact.
func (p Platform) ArtifactName(m *release.Manifest) string {
	if p.SelfReference {
		return lastSegment(m.URL)
	}

	if m.ArtifactName != "" {
		return m.ArtifactName
	}

	// Release asset names cannot contain spaces.
	return strings.ReplaceAll(path.Base(filepathToSlash(m.Path)), " ", "-")
}

// lastSegment returns the trailing path segment of a URL or plain path as written,
// without decoding percent escapes, since asset names are matched verbatim.
func lastSegment(raw string) string {
	if end := strings.IndexAny(raw, "?#"); end >= 0 {
		raw = raw[:end]
	}

	return raw[strings.LastIndex(raw, "/")+1:]
}

// filepathToSlash normalizes Windows separators a publisher may have written.
func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
