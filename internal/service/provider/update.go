package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	ps "github.com/mitchellh/go-ps"

	"github.com/oshokin/release-resolver/internal/logger"
)

var (
	// errCurrentVersionInvalid is returned when the installed version is not a semantic version.
	errCurrentVersionInvalid = errors.New("installed version is not a semantic version")
	// errTargetRunning is returned when the download target is the executable of a running process.
	errTargetRunning = errors.New("target file is in use by a running process")
)

// isNewer reports whether latest should replace current. Without a current version
// every release is an update.
func isNewer(ctx context.Context, latest, current string) (bool, error) {
	current = strings.TrimSpace(current)
	if current == "" {
		return true, nil
	}

	installed, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("%q: %w: %w", current, errCurrentVersionInvalid, err)
	}

	// The manifest version was validated already.
	published, err := semver.NewVersion(latest)
	if err != nil {
		return false, err
	}

	if !published.GreaterThan(installed) {
		logger.InfoKV(ctx, "Installed version is up to date", "installed", installed.String(), "latest", published.String())
		return false, nil
	}

	logger.InfoKV(ctx, "Update available", "installed", installed.String(), "latest", published.String())

	return true, nil
}

// ensureNotRunning refuses to replace a file some other process is executing.
func ensureNotRunning(destination string) error {
	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	target := filepath.Base(destination)
	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if strings.EqualFold(process.Executable(), target) {
			return fmt.Errorf("%s (pid %d): %w", target, process.Pid(), errTargetRunning)
		}
	}

	return nil
}
