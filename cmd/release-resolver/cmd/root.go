package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/release-resolver/internal/config"
	"github.com/oshokin/release-resolver/internal/logger"
	"github.com/oshokin/release-resolver/internal/service/packager"
	"github.com/oshokin/release-resolver/internal/service/provider"
	"github.com/oshokin/release-resolver/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// channel overrides the configured update channel.
	channel string
	// platform overrides the detected operating system.
	platform string
	// logLevel is the minimum level of diagnostics written to stderr.
	logLevel string
	// output is where the download command writes the artifact.
	output string
	// currentVersion is the installed version the latest release is compared with.
	currentVersion string
	// publishOptions holds the flags of the publish command.
	publishOptions packager.Options

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "release-resolver",
		Short: "Resolve application updates from private GitHub releases.",
		Long: `Finds the newest published release of a private repository, downloads and validates
its update manifest and resolves the installer the manifest describes.

The access token is read from GH_TOKEN or GITHUB_TOKEN and is never written to disk.
It is sent to the release host only; redirects to storage domains go without it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}

	// checkCmd resolves the latest version without downloading it.
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Print the latest version and its update file.",
		Long: `Looks up the latest release, validates its channel manifest and prints a YAML report
with the version and the download descriptor of the update file. The token is redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, "")
		},
	}

	// downloadCmd resolves the latest version and writes the update file.
	downloadCmd = &cobra.Command{
		Use:   "download",
		Short: "Download the update file of the latest version.",
		Long: `Resolves the latest version like check does, then downloads the update file through
the credential-scoped session and verifies it against the manifest checksum.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, output)
		},
	}

	// initCmd writes a configuration file.
	initCmd = &cobra.Command{
		Use:   "init <owner>/<repo>",
		Short: "Create a configuration file for a repository.",
		Long: `Writes a configuration file with defaults for the given repository.
The token must be available in the environment, but it is left out of the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return provider.Init(cmd.Context(), &provider.InitOptions{
				ConfigPath: configPath,
				Repository: args[0],
				Channel:    channel,
				Platform:   platform,
			})
		},
	}

	// publishCmd writes the channel manifest of an installer.
	publishCmd = &cobra.Command{
		Use:   "publish <installer>",
		Short: "Write the channel manifest for an installer.",
		Long: `Computes the installer checksums and writes latest.yml, or latest-mac.json for darwin,
ready to be attached to the release together with the installer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publishOptions.Installer = args[0]
			publishOptions.Channel = channel
			publishOptions.Platform = platform

			target, err := packager.Run(cmd.Context(), &publishOptions)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), target)

			return err
		},
	}
)

// run executes one resolution with graceful shutdown handling.
func run(cmd *cobra.Command, destination string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	defer logger.Sync()

	return provider.Run(ctx, &provider.Options{
		ConfigPath:     configPath,
		Channel:        channel,
		Platform:       platform,
		Destination:    destination,
		CurrentVersion: currentVersion,
		Output:         cmd.OutOrStdout(),
	})
}

// Execute runs the release-resolver CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&channel, "channel", "", "update channel, overrides the configuration")
	flags.StringVar(&platform, "platform", "", "darwin, windows or linux, overrides the running system")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	for _, command := range []*cobra.Command{checkCmd, downloadCmd} {
		command.Flags().StringVar(&currentVersion, "current-version", "", "installed version, nothing is downloaded unless the release is newer")
	}

	downloadCmd.Flags().StringVarP(&output, "output", "o", "", "path of the downloaded update file")

	err := downloadCmd.MarkFlagRequired("output")
	if err != nil {
		panic(err)
	}

	publishFlags := publishCmd.Flags()
	publishFlags.StringVar(&publishOptions.Version, "version", "", "semantic version of the release")
	publishFlags.StringVarP(&publishOptions.OutputDir, "output-dir", "o", "", "folder of the written manifest, defaults to the installer's")
	publishFlags.StringVar(&publishOptions.DownloadURL, "download-url", "", "download folder prefixed to the artifact url on darwin")
	publishFlags.StringVar(&publishOptions.ReleaseName, "release-name", "", "release title")
	publishFlags.StringVar(&publishOptions.ReleaseNotes, "release-notes", "", "release description")

	err = publishCmd.MarkFlagRequired("version")
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(checkCmd, downloadCmd, initCmd, publishCmd)
}
