package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sparques/ircapture/internal/config"
	"github.com/sparques/ircapture/internal/logging"
)

type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	var (
		a       = &app{}
		cfgFile string
	)

	root := &cobra.Command{
		Use:   "irframe",
		Short: "Replay IR timing logs through the frame capture engine",
		Long: `irframe feeds recorded edge timings to a simulated receiver, as the
pin or timer interrupt would on a board, and prints every frame the
latch or buffering decoder completes, followed by the error counters.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(cfgFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			a.v = v
			a.cfg = cfg
			a.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
	flags.String("log-level", config.Default().Logging.Level, "log level (DEBUG, INFO, WARN, ERROR)")
	flags.String("log-format", config.Default().Logging.Format, "log format (text, json)")

	root.AddCommand(newReplayCmd(a))
	return root
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":         "logging.level",
	"log-format":        "logging.format",
	"mode":              "capture.mode",
	"source":            "capture.source",
	"dead-time":         "capture.dead_time",
	"tick":              "capture.tick",
	"counter-bits":      "capture.counter_bits",
	"buffer-size":       "capture.buffer_size",
	"in-progress-count": "capture.in_progress_count",
	"realtime":          "capture.realtime",
}

// bindFlags binds the flags of cmd, local and inherited, to v. Flags
// only override the configuration when set explicitly.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
