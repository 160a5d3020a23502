package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meetupz/meetupz/client"
	"github.com/meetupz/meetupz/internal/config"
	"github.com/meetupz/meetupz/internal/logger"
)

var (
	apiURL  string
	dataDir string
	debug   bool

	// logOutput receives log events.
	logOutput io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, NewRootCmd(), os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs root, reports a failure on stderr and returns the exit code.
func execute(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	if err := root.ExecuteContext(ctx); err != nil {
		log.Debug().Stack().Err(err).Msg("command failed")
		fmt.Fprintln(stderr, "error:", client.UserMessage(err))
		return 1
	}
	return 0
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "meetupz",
		Short:         "Browse, join and review meetups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("api-url") {
				apiURL = cfg.APIURL
			}
			if !cmd.Flags().Changed("data-dir") {
				dataDir = cfg.DataDir
			}
			if debug {
				cfg.Debug = true
			}
			if cfg.LogFormat == config.LogFormatJSON {
				logger.InitJSON(logOutput, "meetupz", cfg.Level())
			} else {
				logger.InitConsole(logOutput, cfg.Level())
			}
			log.Debug().Str("api_url", apiURL).Str("data_dir", dataDir).Msg("debug logging enabled")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", client.DefaultBaseURL, "Base URL of the MeetUpz API (default $MEETUPZ_API_URL)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the session and meetup cache (default $MEETUPZ_HOME or ~/.meetupz)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	cfgFn := func() *config.Config { return cfg }

	// Sub-commands
	rootCmd.AddCommand(newLoginCmd(cfgFn))
	rootCmd.AddCommand(newSignupCmd(cfgFn))
	rootCmd.AddCommand(newLogoutCmd(cfgFn))
	rootCmd.AddCommand(newWhoamiCmd(cfgFn))
	rootCmd.AddCommand(newListCmd(cfgFn))
	rootCmd.AddCommand(newLocationsCmd(cfgFn))
	rootCmd.AddCommand(newShowCmd(cfgFn))
	rootCmd.AddCommand(newCreateCmd(cfgFn))
	rootCmd.AddCommand(newDeleteCmd(cfgFn))
	rootCmd.AddCommand(newJoinCmd(cfgFn))
	rootCmd.AddCommand(newLeaveCmd(cfgFn))
	rootCmd.AddCommand(newReviewCmd(cfgFn))
	rootCmd.AddCommand(newReviewsCmd(cfgFn))
	rootCmd.AddCommand(newProfileCmd(cfgFn))
	rootCmd.AddCommand(newWatchCmd(cfgFn))

	return rootCmd
}

// app is one command's connection: the local store and a client whose
// session was restored from it.
type app struct {
	store  *client.LocalStore
	client *client.Client
}

func connect(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := client.OpenLocalStore(ctx, dataDir)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	opts := append(cfg.ClientOptions(), client.WithStore(store))
	c, err := client.New(apiURL, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := c.Session().Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore session")
	}
	return &app{store: store, client: c}, nil
}

func (a *app) Close() {
	_ = a.client.Close()
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("close local store")
	}
}

func withApp(cfg func() *config.Config, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := connect(cmd.Context(), cfg())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
