package cmd

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/browser"
)

// errDoctorFailed makes doctor exit non-zero after printing its report.
var errDoctorFailed = errors.New("backend checks failed")

type doctorReport struct {
	APIURL  string        `json:"api_url" yaml:"api_url"`
	Backend backendReport `json:"backend" yaml:"backend"`
	Auth    authReport    `json:"auth" yaml:"auth"`
}

type backendReport struct {
	Reachable bool          `json:"reachable" yaml:"reachable"`
	Status    string        `json:"status,omitempty" yaml:"status,omitempty"`
	Timestamp api.Timestamp `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type authReport struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Message       string `json:"message,omitempty" yaml:"message,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newDoctorCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the backend is reachable and signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd, flags)
			if err != nil {
				return err
			}

			report := doctorReport{APIURL: env.client.BaseURL()}
			ok := true

			if health, err := env.client.Health(cmd.Context()); err != nil {
				report.Backend.Error = api.UserMessage(err, "")
				ok = false
			} else {
				report.Backend.Reachable = true
				report.Backend.Status = health.Status
				report.Backend.Timestamp = health.Timestamp
			}

			if report.Backend.Reachable {
				if status, err := env.client.AuthStatus(cmd.Context()); err != nil {
					report.Auth.Error = api.UserMessage(err, "")
					ok = false
				} else {
					report.Auth.Authenticated = status.Authenticated
					report.Auth.Message = status.Message
				}
			}

			err = writeOutput(cmd.OutOrStdout(), env.cfg.OutputFormat, report, func(w io.Writer) error {
				writeDoctorText(w, report)
				return nil
			})
			if err != nil {
				return err
			}
			if !ok {
				return errDoctorFailed
			}
			return nil
		},
	}
}

func writeDoctorText(w io.Writer, r doctorReport) {
	printf(w, "API URL:  %s\n", r.APIURL)

	switch {
	case !r.Backend.Reachable:
		printf(w, "Backend:  FAIL %s\n", r.Backend.Error)
	case r.Backend.Timestamp.Valid():
		printf(w, "Backend:  ok (%s, reported %s)\n", r.Backend.Status, browser.RelativeTime(r.Backend.Timestamp))
	default:
		printf(w, "Backend:  ok (%s)\n", r.Backend.Status)
	}

	switch {
	case !r.Backend.Reachable:
		printf(w, "Auth:     skipped\n")
	case r.Auth.Error != "":
		printf(w, "Auth:     FAIL %s\n", r.Auth.Error)
	case r.Auth.Authenticated:
		printf(w, "Auth:     signed in\n")
	default:
		printf(w, "Auth:     not signed in, run `meetscribe auth login`\n")
	}
}
