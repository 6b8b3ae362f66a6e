package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicereader/agent/internal/console"
	"voicereader/agent/internal/logging"
	"voicereader/agent/internal/session"
	"voicereader/agent/internal/store"
)

var (
	consoleSpeed   float64
	consoleVerbose bool
	consolePlain   bool
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the reader in the terminal",
	Long: `Run the reader in the terminal.

Type what you would say ("science", "chapter one", "read summary", "stop").
Utterances are printed and paced as if spoken. Lines starting with a slash
are console commands:

  /listen, /mute           turn voice input on or off
  /tap <action> [arg]      touch action, e.g. /tap select_chapter c2, /tap play qa
  /state                   show the current view and playback
  /help                    voice commands for the current view
  /quit                    leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := "error"
		if consoleVerbose {
			level = "debug"
		}
		log, err := logging.New(level, true)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		styles := console.DefaultStyles()
		if consolePlain {
			styles = console.PlainStyles()
		}
		con := console.New(console.Options{
			Out:      cmd.OutOrStdout(),
			Styles:   styles,
			Language: cfg.Voice.Language,
			Speed:    consoleSpeed,
		}, log)

		opts := sessionOptions(cfg)
		opts.Publish = con.Publish
		sess, err := session.New(cat, con.Recognizer, con.Synth, store.New(cfg.Events.Max), opts, log)
		if err != nil {
			return err
		}
		con.Attach(sess)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		loopDone := make(chan struct{})
		go func() {
			defer close(loopDone)
			_ = sess.Run(ctx)
		}()

		err = con.Run(ctx, cmd.InOrStdin())
		stop()
		<-loopDone
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	consoleCmd.Flags().Float64Var(&consoleSpeed, "speed", 1, "speaking speed multiplier for the simulated voice")
	consoleCmd.Flags().BoolVarP(&consoleVerbose, "verbose", "v", false, "log debug output to stderr")
	consoleCmd.Flags().BoolVar(&consolePlain, "plain", false, "disable colors")
}
