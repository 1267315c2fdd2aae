package packager

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/release-resolver/internal/config"
	"github.com/oshokin/release-resolver/internal/logger"
	"github.com/oshokin/release-resolver/internal/manifest"
)

// DefaultFileMode is used for written manifests.
const DefaultFileMode os.FileMode = 0o644

// releaseDateLayout matches the timestamps release tooling writes into manifests.
const releaseDateLayout = "2006-01-02T15:04:05.000Z"

// errInstallerRequired is returned when no installer is given.
var errInstallerRequired = errors.New("installer path is required")

// Options contains inputs for the packager entry point.
type Options struct {
	// Installer is the path of the primary artifact.
	Installer string
	// Version is the semantic version of the release.
	Version string
	// Platform selects the manifest format; empty means the running system.
	Platform string
	// Channel selects the manifest file name; empty means the default channel.
	Channel string
	// OutputDir is where the manifest is written; empty means the installer's folder.
	OutputDir string
	// DownloadURL prefixes the artifact URL on self-referencing platforms.
	DownloadURL string
	// ReleaseName is the optional release title.
	ReleaseName string
	// ReleaseNotes is the optional release description.
	ReleaseNotes string
}

// packager writes the manifest of one installer.
// It is unexported, callers should use Run, which encapsulates setup and validation.
type packager struct {
	// opts are the validated inputs.
	opts *Options
	// platform is the manifest strategy.
	platform manifest.Platform
	// now returns the release date.
	now func() time.Time
}

// Run writes the channel manifest for the installer and returns its path.
func Run(ctx context.Context, opts *Options) (string, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "release-packager")

	pkg, err := newPackager(opts)
	if err != nil {
		return "", fmt.Errorf("initialize packager: %w", err)
	}

	target, err := pkg.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return target, nil
}

// newPackager fills defaults and checks the inputs.
func newPackager(opts *Options) (*packager, error) {
	if opts == nil || strings.TrimSpace(opts.Installer) == "" {
		return nil, errInstallerRequired
	}

	resolved := *opts

	if resolved.Channel == "" {
		resolved.Channel = config.DefaultChannel
	}

	if resolved.OutputDir == "" {
		resolved.OutputDir = filepath.Dir(resolved.Installer)
	}

	platform := manifest.Current()
	if resolved.Platform != "" {
		platform = manifest.PlatformFor(resolved.Platform)
	}

	return &packager{
		opts:     &resolved,
		platform: platform,
		now:      time.Now,
	}, nil
}

// Run computes the checksums, validates and writes the manifest.
func (p *packager) Run(ctx context.Context) (string, error) {
	logger.InfoKV(ctx, "Computing checksums", "installer", p.opts.Installer)

	raw, err := p.describe()
	if err != nil {
		return "", err
	}

	if err = (manifest.SchemaValidator{}).Validate(raw, p.platform); err != nil {
		return "", err
	}

	contents, err := p.platform.Encode(raw)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	target := filepath.Join(p.opts.OutputDir, p.platform.ChannelFilename(p.opts.Channel))

	logger.InfoKV(ctx, "Saving update manifest", "path", target)

	if err = os.WriteFile(target, contents, DefaultFileMode); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	p.printNextSteps(ctx, target)

	return target, nil
}

// describe builds the manifest of the installer.
func (p *packager) describe() (*manifest.Raw, error) {
	sha2, sha512sum, err := fileChecksums(p.opts.Installer)
	if err != nil {
		return nil, err
	}

	fileName := filepath.Base(p.opts.Installer)

	raw := &manifest.Raw{
		Version:      strings.TrimSpace(p.opts.Version),
		SHA2:         sha2,
		SHA512:       sha512sum,
		ReleaseName:  p.opts.ReleaseName,
		ReleaseNotes: p.opts.ReleaseNotes,
		ReleaseDate:  p.now().UTC().Format(releaseDateLayout),
	}

	if p.platform.SelfReference {
		raw.URL = assetName(fileName)
		if p.opts.DownloadURL != "" {
			raw.URL = strings.TrimSuffix(p.opts.DownloadURL, "/") + "/" + raw.URL
		}

		return raw, nil
	}

	raw.Path = fileName

	return raw, nil
}

// printNextSteps logs which files must be attached to the release.
func (p *packager) printNextSteps(ctx context.Context, target string) {
	var builder strings.Builder

	builder.WriteString("Attach the following files to the release ")
	builder.WriteString(p.opts.Version)
	builder.WriteString(":\n")
	builder.WriteString(assetName(filepath.Base(p.opts.Installer)))
	builder.WriteString(" (")
	builder.WriteString(p.opts.Installer)
	builder.WriteString("),\n")
	builder.WriteString(filepath.Base(target))

	logger.Info(ctx, builder.String())
}

// assetName is the name the installer must be uploaded under.
func assetName(fileName string) string {
	return strings.ReplaceAll(fileName, " ", "-")
}

// fileChecksums returns the hex SHA-256 and base64 SHA-512 checksums of a file.
func fileChecksums(fileName string) (string, string, error) {
	file, err := os.Open(filepath.Clean(fileName))
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", fileName, err)
	}

	defer func() {
		_ = file.Close()
	}()

	sha256Hash := sha256.New()
	sha512Hash := sha512.New()

	if _, err = io.Copy(io.MultiWriter(sha256Hash, sha512Hash), file); err != nil {
		return "", "", fmt.Errorf("read %s: %w", fileName, err)
	}

	return hex.EncodeToString(sha256Hash.Sum(nil)),
		base64.StdEncoding.EncodeToString(sha512Hash.Sum(nil)),
		nil
}
