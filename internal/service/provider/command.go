package provider

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-resolver/internal/config"
	"github.com/oshokin/release-resolver/internal/domain/release"
	"github.com/oshokin/release-resolver/internal/logger"

	// Ensure checksum functions are linked in for go-update.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// DefaultFileMode is used for downloaded artifacts.
const DefaultFileMode os.FileMode = 0o755

var (
	// errBadHTTPStatus is returned when the artifact download does not answer 200.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errBadChecksum is returned when the manifest checksum cannot be decoded.
	errBadChecksum = errors.New("manifest checksum is malformed")
)

// Options are inputs accepted by the resolver entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Channel overrides the configured update channel.
	Channel string
	// Platform overrides the configured or detected platform.
	Platform string
	// Destination is where the artifact is written; empty means resolve only.
	Destination string
	// CurrentVersion is the installed version; when set, older or equal releases are not downloaded.
	CurrentVersion string
	// Output receives the resolution report. Defaults to os.Stdout.
	Output io.Writer
}

// report is the YAML document printed after a successful resolution.
type report struct {
	// Version is the newest published version.
	Version string `yaml:"version"`
	// ReleaseName is the release title, if any.
	ReleaseName string `yaml:"release_name,omitempty"`
	// ReleaseDate is the publication date, if any.
	ReleaseDate string `yaml:"release_date,omitempty"`
	// ManifestURL is set on self-referencing platforms.
	ManifestURL string `yaml:"manifest_url,omitempty"`
	// UpdateAvailable is false when the installed version is already current.
	UpdateAvailable bool `yaml:"update_available"`
	// Artifact describes the download.
	Artifact reportArtifact `yaml:"artifact"`
	// Destination is the written file, if any.
	Destination string `yaml:"destination,omitempty"`
}

// reportArtifact is the printable artifact descriptor with the token redacted.
type reportArtifact struct {
	Name      string            `yaml:"name"`
	URL       string            `yaml:"url"`
	SHA2      string            `yaml:"sha2,omitempty"`
	SHA512    string            `yaml:"sha512,omitempty"`
	Headers   map[string]string `yaml:"headers"`
	Partition string            `yaml:"partition"`
}

// Run resolves the latest release and optionally downloads its primary artifact.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "release-resolver")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.Channel != "" {
		cfg.Channel = opts.Channel
	}

	if opts.Platform != "" {
		cfg.Platform = opts.Platform
	}

	p, err := New(cfg)
	if err != nil {
		return fmt.Errorf("initialize provider: %w", err)
	}

	defer func() {
		_ = p.Close()
	}()

	ctx = logger.WithKV(ctx, "repo", cfg.Owner+"/"+cfg.Repo)

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	if err = p.check(ctx, opts.Destination, opts.CurrentVersion, output); err != nil {
		logger.ErrorKV(ctx, "Resolution failed", "error", err)
		return err
	}

	return nil
}

// check runs one update check and reports a release whose manifest and assets disagree
// as an error instead of a panic. Any other panic is propagated.
func (p *Provider) check(ctx context.Context, destination, currentVersion string, output io.Writer) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}

		inconsistent, ok := recovered.(*AssetResolutionError)
		if !ok {
			panic(recovered)
		}

		err = inconsistent
	}()

	return p.run(ctx, destination, currentVersion, output)
}

// run performs one update check and writes the report.
func (p *Provider) run(ctx context.Context, destination, currentVersion string, output io.Writer) error {
	logger.InfoKV(ctx, "Checking for the latest version", "platform", p.platform.Name, "channel", p.channel)

	latest, err := p.GetLatestVersion(ctx)
	if err != nil {
		return err
	}

	artifact, err := p.GetUpdateFile(ctx, latest)
	if err != nil {
		return err
	}

	available, err := isNewer(ctx, latest.Version, currentVersion)
	if err != nil {
		return err
	}

	if !available {
		destination = ""
	}

	if destination != "" {
		if err = ensureNotRunning(destination); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Downloading the update file", "name", artifact.Name, "destination", destination)

		if err = p.Download(ctx, artifact, destination); err != nil {
			return fmt.Errorf("download %s: %w", artifact.Name, err)
		}
	}

	return writeReport(output, &report{
		Version:         latest.Version,
		ReleaseName:     latest.ReleaseName,
		ReleaseDate:     latest.ReleaseDate,
		ManifestURL:     latest.ManifestURL,
		UpdateAvailable: available,
		Destination:     destination,
	}, artifact)
}

// Download fetches the artifact through its isolated network context and writes it
// to destination, verifying the manifest checksum when one is present.
func (p *Provider) Download(ctx context.Context, artifact *release.Artifact, destination string) error {
	options, err := applyOptions(artifact, destination)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifact.URL, http.NoBody)
	if err != nil {
		return err
	}

	for name, value := range artifact.Headers {
		req.Header.Set(name, value)
	}

	response, err := p.HTTPClient().Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", artifact.URL, response.Status, errBadHTTPStatus)
	}

	if _, err = os.Stat(options.TargetPath); err != nil && os.IsNotExist(err) {
		var placeholder *os.File

		if placeholder, err = os.Create(options.TargetPath); err != nil {
			return err
		}

		_ = placeholder.Close()
	}

	if err = goupdate.Apply(response.Body, *options); err != nil {
		return err
	}

	oldFileName := options.TargetPath + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	logger.InfoKV(ctx, "Update file written", "path", options.TargetPath)

	return nil
}

// applyOptions builds go-update options with the strongest checksum the manifest offers.
func applyOptions(artifact *release.Artifact, destination string) (*goupdate.Options, error) {
	options := &goupdate.Options{
		TargetPath: filepath.Clean(destination),
		TargetMode: DefaultFileMode,
	}

	switch {
	case artifact.SHA512 != "":
		checksum, err := base64.StdEncoding.DecodeString(artifact.SHA512)
		if err != nil {
			return nil, fmt.Errorf("sha512: %w: %w", errBadChecksum, err)
		}

		options.Checksum = checksum
		options.Hash = crypto.SHA512
	case artifact.SHA2 != "":
		checksum, err := hex.DecodeString(artifact.SHA2)
		if err != nil {
			return nil, fmt.Errorf("sha2: %w: %w", errBadChecksum, err)
		}

		options.Checksum = checksum
		options.Hash = crypto.SHA256
	}

	return options, nil
}

// writeReport prints the resolution result as YAML with the token redacted.
func writeReport(output io.Writer, doc *report, artifact *release.Artifact) error {
	headers := maps.Clone(artifact.Headers)
	if auth, ok := headers["Authorization"]; ok {
		scheme, _, _ := strings.Cut(auth, " ")
		headers["Authorization"] = scheme + " <redacted>"
	}

	doc.Artifact = reportArtifact{
		Name:      artifact.Name,
		URL:       artifact.URL,
		SHA2:      artifact.SHA2,
		SHA512:    artifact.SHA512,
		Headers:   headers,
		Partition: artifact.Partition,
	}

	encoder := yaml.NewEncoder(output)
	encoder.SetIndent(2)

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return encoder.Close()
}
