package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the release host settings shared by the resolver commands.
type Config struct {
	// Owner is the account or organization that owns the repository.
	Owner string `yaml:"owner"`
	// Repo is the repository holding the published releases.
	Repo string `yaml:"repo"`
	// Host is the release API host, optionally with a port.
	Host string `yaml:"host,omitempty"`
	// Protocol is the URL scheme used to reach Host.
	Protocol string `yaml:"protocol,omitempty"`
	// Token grants read access to private release data.
	// It is never written back to disk.
	Token string `yaml:"token,omitempty"`
	// Channel is the update track that selects the manifest file.
	Channel string `yaml:"channel,omitempty"`
	// Platform overrides the running OS when picking the manifest strategy.
	Platform string `yaml:"platform,omitempty"`
	// Partition names the isolated network context used for release traffic.
	Partition string `yaml:"partition,omitempty"`
	// StoragePatterns lists URL patterns of third-party storage that must not receive the token.
	StoragePatterns []string `yaml:"storage_patterns,omitempty"`
	// Timeout bounds a single HTTP exchange, redirects included.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for resolver settings.
	DefaultConfigFilename = "release-resolver.yaml"

	// DefaultHost is the public GitHub API host.
	DefaultHost = "api.github.com"

	// DefaultProtocol is the scheme used when none is configured.
	DefaultProtocol = "https"

	// DefaultChannel is the update track used when none is configured.
	DefaultChannel = "latest"

	// DefaultPartition is the name of the shared isolated network context.
	DefaultPartition = "release-resolver"

	// DefaultTimeout is the default duration for a single HTTP exchange.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// TokenEnv is checked first when the token is not set in the file.
	TokenEnv = "GH_TOKEN"

	// FallbackTokenEnv is checked when TokenEnv is empty.
	FallbackTokenEnv = "GITHUB_TOKEN"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errOwnerRequired is returned when the repository owner is missing.
	errOwnerRequired = errors.New("repository owner must be provided")
	// errRepoRequired is returned when the repository name is missing.
	errRepoRequired = errors.New("repository name must be provided")
	// errTokenRequired is returned when no access token could be found.
	errTokenRequired = errors.New("access token must be provided via settings, " + TokenEnv + " or " + FallbackTokenEnv)
	// errBadProtocol is returned for schemes other than http and https.
	errBadProtocol = errors.New("protocol must be http or https")
	// errBadHost is returned when the host contains a scheme or a path.
	errBadHost = errors.New("host must be a bare hostname with an optional port")
)

// DefaultStoragePatterns returns the storage domains GitHub redirects release assets to.
func DefaultStoragePatterns() []string {
	return []string{
		"*://*.amazonaws.com/*",
		"*://*.githubusercontent.com/*",
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path. The token is left out of the file.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	persisted := *cfg
	persisted.Token = ""

	data, err := yaml.Marshal(&persisted)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	settings.Owner = strings.TrimSpace(settings.Owner)
	if settings.Owner == "" {
		return errOwnerRequired
	}

	settings.Repo = strings.TrimSpace(settings.Repo)
	if settings.Repo == "" {
		return errRepoRequired
	}

	if settings.Host == "" {
		settings.Host = DefaultHost
	}

	if strings.Contains(settings.Host, "/") {
		return fmt.Errorf("%q: %w", settings.Host, errBadHost)
	}

	if settings.Protocol == "" {
		settings.Protocol = DefaultProtocol
	}

	settings.Protocol = strings.ToLower(settings.Protocol)
	if settings.Protocol != "http" && settings.Protocol != "https" {
		return fmt.Errorf("%q: %w", settings.Protocol, errBadProtocol)
	}

	if settings.Channel == "" {
		settings.Channel = DefaultChannel
	}

	if settings.Partition == "" {
		settings.Partition = DefaultPartition
	}

	if len(settings.StoragePatterns) == 0 {
		settings.StoragePatterns = DefaultStoragePatterns()
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.Token == "" {
		settings.Token = tokenFromEnv()
	}

	if settings.Token == "" {
		return errTokenRequired
	}

	return nil
}

// BaseURL returns the protocol and host of the release API, e.g. https://api.github.com.
func (c *Config) BaseURL() string {
	return c.Protocol + "://" + c.Host
}

// RepositoryPath returns the releases path of the configured repository.
func (c *Config) RepositoryPath() string {
	return "/repos/" + c.Owner + "/" + c.Repo + "/releases"
}

// tokenFromEnv returns the first non-empty token environment variable.
func tokenFromEnv() string {
	for _, name := range []string{TokenEnv, FallbackTokenEnv} {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}

	return ""
}
