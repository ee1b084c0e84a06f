package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/config"
	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	apiURL     string
	timeout    time.Duration
	debug      bool
	output     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "meetscribe",
		Short: "Browse meetings and their transcripts",
		Long: `meetscribe is a client for the meeting transcript service. It lists your
calendar meetings, the transcripts recorded for them, shows transcript text
and downloads transcript files.

It can run as:
  - An interactive terminal browser (default)
  - A local web UI (serve)
  - One-shot commands for scripts (auth, meetings, transcripts)`,
		SilenceUsage: true,
		Version:      version,
	}
	rootCmd.SetVersionTemplate(`{{printf "meetscribe version %s\n" .Version}}`)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "Config file (default: $MEETSCRIBE_CONFIG_DIR/config.yaml or ~/.config/meetscribe/config.yaml)")
	pf.StringVar(&flags.apiURL, "api-url", "", "Backend API base URL. Can also use MEETSCRIBE_API_URL env var.")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Timeout for each backend request. Can also use MEETSCRIBE_TIMEOUT env var.")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging. Can also use MEETSCRIBE_DEBUG env var.")
	pf.StringVarP(&flags.output, "output", "o", "", "Output format: text, json, yaml. Can also use MEETSCRIBE_OUTPUT env var.")

	rootCmd.AddCommand(newBrowseCmd(flags))
	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newAuthCmd(flags))
	rootCmd.AddCommand(newMeetingsCmd(flags))
	rootCmd.AddCommand(newTranscriptsCmd(flags))
	rootCmd.AddCommand(newConfigCmd(flags))
	rootCmd.AddCommand(newDoctorCmd(flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd := newRootCmd()

	// If no subcommand is provided, run the interactive browser by default
	if len(os.Args) == 1 {
		rootCmd.SetArgs([]string{"browse"})
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig builds the effective configuration: file, .env and
// environment, then the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	return loadConfigWith(cmd, flags, config.LoadOptions{ConfigFile: flags.configFile})
}

func loadConfigWith(cmd *cobra.Command, flags *globalFlags, opts config.LoadOptions) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, err
	}

	pf := cmd.Flags()
	if pf.Changed("api-url") {
		cfg.APIURL = flags.apiURL
	}
	if pf.Changed("timeout") {
		cfg.Timeout = flags.timeout
	}
	if pf.Changed("debug") {
		cfg.Debug = flags.debug
	}
	if pf.Changed("output") {
		cfg.OutputFormat = config.OutputFormat(flags.output)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger logs to w at level, or at debug level when enabled in cfg.
func newLogger(w io.Writer, cfg *config.Config, level slog.Level) *slog.Logger {
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return logging.New(w, level)
}

// newAPIClient creates the backend client described by cfg. metrics may be
// nil.
func newAPIClient(cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*api.Client, error) {
	client, err := api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(logger),
		api.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

// commandEnv is what one-shot commands need: configuration, a logger and a
// backend client.
type commandEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	client *api.Client
}

func newCommandEnv(cmd *cobra.Command, flags *globalFlags) (*commandEnv, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg, slog.LevelWarn)
	client, err := newAPIClient(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return &commandEnv{cfg: cfg, logger: logger, client: client}, nil
}
