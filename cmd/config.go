package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/meetscribe/internal/config"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}
	cmd.AddCommand(newConfigShowCmd(flags))
	cmd.AddCommand(newConfigInitCmd(flags))
	return cmd
}

func newConfigShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			file := cfg.File()
			return writeOutput(cmd.OutOrStdout(), cfg.OutputFormat, file, func(w io.Writer) error {
				path := flags.configFile
				if path == "" {
					path, _ = config.ConfigPath()
				}
				printf(w, "Config file:   %s\n", path)
				printf(w, "API URL:       %s\n", file.APIURL)
				printf(w, "Timeout:       %s\n", file.Timeout)
				printf(w, "Download dir:  %s\n", file.DownloadDir)
				printf(w, "HTTP address:  %s\n", file.HTTPAddr)
				printf(w, "Metrics addr:  %s\n", file.MetricsAddr)
				printf(w, "Debug:         %t\n", file.Debug)
				printf(w, "Output format: %s\n", file.OutputFormat)
				return nil
			})
		},
	}
}

func newConfigInitCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigWith(cmd, flags, config.LoadOptions{
				ConfigFile:    flags.configFile,
				CreateMissing: true,
			})
			if err != nil {
				return err
			}
			path := flags.configFile
			if path == "" {
				if path, err = config.ConfigPath(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			written, err := config.SaveConfig(cfg, path)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Configuration written to %s\n", written)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
