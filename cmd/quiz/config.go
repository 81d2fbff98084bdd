package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/donok1/wedding-quiz/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	server            string
	room              string
	role              string
	name              string
	syncInterval      time.Duration
	heartbeatInterval time.Duration
	timeout           time.Duration
	poll              bool
	verbose           bool
}

func (c *Config) validate() error {
	if c.server == "" {
		return errors.New("--server is required")
	}
	if c.syncInterval <= 0 || c.heartbeatInterval <= 0 || c.timeout <= 0 {
		return errors.New("intervals and timeout must be positive")
	}
	if c.heartbeatInterval >= c.timeout {
		return fmt.Errorf("heartbeat interval %s must be shorter than the connection timeout %s", c.heartbeatInterval, c.timeout)
	}
	return nil
}

// sessionConfig maps the flags onto the shared runtime settings.
func (c *Config) sessionConfig() config.Config {
	cfg := config.Default()
	cfg.SyncIntervalMS = int(c.syncInterval.Milliseconds())
	cfg.HeartbeatIntervalMS = int(c.heartbeatInterval.Milliseconds())
	cfg.ConnectionTimeoutMS = int(c.timeout.Milliseconds())
	return cfg
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := config.Default()

	cmd := &cobra.Command{
		Use:           "quiz",
		Short:         "Play the wedding quiz from a terminal.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return play(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "room service URL (env: QUIZ_SERVER)")
	fs.StringVarP(&cfg.room, "room", "r", "", "room code to join on start (env: QUIZ_ROOM)")
	fs.StringVar(&cfg.role, "role", "", "role to select on start: primaryA, primaryB, admin or guest (env: QUIZ_ROLE)")
	fs.StringVarP(&cfg.name, "name", "n", "", "guest name to register on start (env: QUIZ_NAME)")
	fs.DurationVar(&cfg.syncInterval, "sync-interval", defaults.SyncInterval(), "how often the room is re-read (env: QUIZ_SYNC_INTERVAL)")
	fs.DurationVar(&cfg.heartbeatInterval, "heartbeat-interval", defaults.HeartbeatInterval(), "how often presence is written (env: QUIZ_HEARTBEAT_INTERVAL)")
	fs.DurationVar(&cfg.timeout, "timeout", defaults.ConnectionTimeout(), "heartbeat age after which a participant counts as disconnected (env: QUIZ_TIMEOUT)")
	fs.BoolVar(&cfg.poll, "poll", false, "poll the room instead of subscribing over websocket (env: QUIZ_POLL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log sync activity (env: QUIZ_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
