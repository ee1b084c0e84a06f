package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/meetscribe/internal/app"
	"github.com/teemow/meetscribe/internal/terminal"
)

func newBrowseCmd(flags *globalFlags) *cobra.Command {
	var downloadDir string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse meetings and transcripts interactively",
		Long: `Start the interactive terminal browser. Screens are numbered menus:
pick a meeting by number to list its transcripts, pick a transcript to read
it, then press d to download it. Type h on any screen for the commands it
accepts.

This is the default command when no subcommand is specified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("download-dir") {
				cfg.DownloadDir = downloadDir
			}

			// Warnings only by default, anything chattier would interleave
			// with the menus.
			logger := newLogger(cmd.ErrOrStderr(), cfg, slog.LevelWarn)
			client, err := newAPIClient(cfg, logger, nil)
			if err != nil {
				return err
			}

			a := app.New(client, app.WithLogger(logger), app.WithLocation(time.Local))
			defer a.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runner := terminal.NewRunner(a, cmd.InOrStdin(), cmd.OutOrStdout(), terminal.Options{
				DownloadDir: cfg.DownloadDir,
				Logger:      logger,
			})
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&downloadDir, "download-dir", "", "Directory transcripts are saved to. Can also use MEETSCRIBE_DOWNLOAD_DIR env var.")
	return cmd
}
