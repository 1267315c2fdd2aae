package provider

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-resolver/internal/config"
)

// TestInit writes settings that load back without the token.
func TestInit(t *testing.T) {
	t.Setenv(config.TokenEnv, "T")

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)

	require.NoError(t, Init(context.Background(), &InitOptions{
		ConfigPath: path,
		Repository: "acme/app",
		Channel:    "beta",
	}))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "acme", cfg.Owner)
	require.Equal(t, "app", cfg.Repo)
	require.Equal(t, "beta", cfg.Channel)
	require.Equal(t, "T", cfg.Token)
}

// TestInit_BadRepository rejects anything but owner/repo.
func TestInit_BadRepository(t *testing.T) {
	t.Parallel()

	for _, repository := range []string{"acme", "/app", "acme/", "acme/app/extra"} {
		err := Init(context.Background(), &InitOptions{
			ConfigPath: filepath.Join(t.TempDir(), "settings.yaml"),
			Repository: repository,
		})
		require.ErrorIs(t, err, errBadRepository, repository)
	}
}
