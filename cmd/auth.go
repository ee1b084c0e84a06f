package cmd

import (
	"io"

	"github.com/spf13/cobra"
)

func newAuthCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Check or start backend authentication",
	}
	cmd.AddCommand(newAuthStatusCmd(flags))
	cmd.AddCommand(newAuthLoginCmd(flags))
	return cmd
}

func newAuthStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the backend is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd, flags)
			if err != nil {
				return err
			}
			status, err := env.client.AuthStatus(cmd.Context())
			if err != nil {
				return failed("failed to check authentication", err)
			}
			return writeOutput(cmd.OutOrStdout(), env.cfg.OutputFormat, status, func(w io.Writer) error {
				if status.Authenticated {
					printf(w, "Authenticated\n")
				} else {
					printf(w, "Not authenticated\n")
				}
				if status.Message != "" {
					printf(w, "%s\n", status.Message)
				}
				return nil
			})
		},
	}
}

type loginResult struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

func newAuthLoginCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Ask the backend to sign in",
		Long: `Ask the backend to run its sign-in flow. Depending on the backend this may
open a browser window on the machine running it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd, flags)
			if err != nil {
				return err
			}
			message, err := env.client.Login(cmd.Context())
			if err != nil {
				return failed("login failed", err)
			}
			result := loginResult{Success: true, Message: message}
			return writeOutput(cmd.OutOrStdout(), env.cfg.OutputFormat, result, func(w io.Writer) error {
				if message == "" {
					message = "Successfully authenticated"
				}
				printf(w, "%s\n", message)
				return nil
			})
		},
	}
}
