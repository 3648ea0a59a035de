// Package cli wires the command-line surface: the download orchestrator and
// the device-profile management commands.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"laview-dl/internal/config"
	"laview-dl/internal/registry"
)

// App carries the run-wide state every command shares: settings resolved from
// the environment, the logger, and the output stream for user-facing reports.
type App struct {
	settings  *config.Settings
	log       *slog.Logger
	out       io.Writer
	configDir string
}

// Execute runs the CLI and exits non-zero on any failure.
func Execute() {
	settings := config.FromEnv()
	app := &App{
		settings: settings,
		log:      slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: settings.LogLevel})),
		out:      os.Stdout,
	}
	if err := app.newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "laview-dl",
		Short: "Download recorded video from LaView/Hikvision NVRs over ISAPI",
		Long: `laview-dl enumerates and downloads recorded video segments from a
LaView/Hikvision NVR camera channel over its ISAPI HTTP interface.

Credentials come from flags, a stored device profile, or the
` + config.EnvUser + ` / ` + config.EnvPassword + ` environment variables.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configDir, "config-dir", a.configDir,
		"directory holding the device registry (default: user config dir)")

	root.AddCommand(a.newDownloadCmd())
	root.AddCommand(a.newDeviceCmd())
	return root
}

// openRegistry resolves the registry location, honoring --config-dir.
func (a *App) openRegistry() (*registry.Registry, error) {
	dir := a.configDir
	if dir == "" {
		var err error
		dir, err = registry.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	return registry.Open(dir, a.log), nil
}
