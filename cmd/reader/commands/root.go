package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"voicereader/agent/internal/catalog"
	"voicereader/agent/internal/config"
	"voicereader/agent/internal/playback"
	"voicereader/agent/internal/session"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "reader",
	Short: "Voice-driven study reader",
	Long: `Voice-driven study reader.

Browse subjects and chapters and have them read aloud by voice or touch.
Configuration comes from the environment (a .env file is loaded if present)
and optionally from a file given with --config.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(sayCmd)
}

func loadConfig() (config.Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return config.Load(configFile)
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	return catalog.Load(afero.NewOsFs(), cfg.Catalog.Path)
}

func sessionOptions(cfg config.Config) session.Options {
	return session.Options{
		LockWindow:  cfg.LockWindow(),
		FeedbackTTL: cfg.FeedbackTTL(),
		RestartMax:  cfg.RestartMax(),
		Language:    cfg.Voice.Language,
		Playback: playback.Options{
			ContentRate: cfg.Voice.ContentRate,
			SystemRate:  cfg.Voice.SystemRate,
		},
	}
}
