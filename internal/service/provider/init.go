package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/release-resolver/internal/config"
	"github.com/oshokin/release-resolver/internal/logger"
)

// errBadRepository is returned when the repository is not in owner/repo form.
var errBadRepository = errors.New("repository must be in owner/repo form")

// InitOptions are inputs accepted by Init.
type InitOptions struct {
	// ConfigPath is where the settings are written.
	ConfigPath string
	// Repository is the owner/repo pair of the release repository.
	Repository string
	// Channel is the update channel to save; empty means the default.
	Channel string
	// Platform is the platform override to save; empty means none.
	Platform string
}

// Init writes a settings file for the repository without its token.
func Init(ctx context.Context, opts *InitOptions) error {
	ctx = logger.WithName(ctx, "init")

	owner, repo, ok := strings.Cut(opts.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("%q: %w", opts.Repository, errBadRepository)
	}

	cfg := &config.Config{
		Owner:    owner,
		Repo:     repo,
		Channel:  opts.Channel,
		Platform: opts.Platform,
	}

	if err := config.Save(opts.ConfigPath, cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	logger.InfoKV(ctx, "Settings written", "path", opts.ConfigPath, "releases", cfg.BaseURL()+cfg.RepositoryPath())

	return nil
}
