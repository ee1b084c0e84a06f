package cmd

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/browser"
)

func newMeetingsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "List calendar meetings",
	}
	cmd.AddCommand(newMeetingsListCmd(flags))
	return cmd
}

func newMeetingsListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your meetings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd, flags)
			if err != nil {
				return err
			}
			meetings, err := env.client.ListMeetings(cmd.Context())
			if err != nil {
				return failed(browser.LabelMeetingsFailed, err)
			}
			return writeOutput(cmd.OutOrStdout(), env.cfg.OutputFormat, meetings, func(w io.Writer) error {
				return writeMeetingsText(w, meetings)
			})
		},
	}
}

func writeMeetingsText(w io.Writer, meetings []api.Meeting) error {
	if len(meetings) == 0 {
		printf(w, "%s\n", browser.LabelNoMeetings)
		return nil
	}
	for i, m := range meetings {
		card := browser.NewMeetingCard(m, nil)
		printf(w, "%2d. %s\n", i+1, card.Title)
		printf(w, "    ID: %s\n", m.ID)
		printf(w, "    Date: %s\n", card.Start)
		if m.EndTime.Valid() {
			printf(w, "    Ends: %s\n", browser.FormatTimestamp(m.EndTime))
		}
		if m.Organizer != "" {
			printf(w, "    Organizer: %s\n", m.Organizer)
		}
		if card.HasAttendees() {
			printf(w, "    Attendees: %d (%s)\n", card.AttendeeCount, strings.Join(m.Attendees, ", "))
		}
		if card.MeetLink != "" {
			printf(w, "    Link: %s\n", card.MeetLink)
		}
		if card.Description != "" {
			printf(w, "    Description: %s\n", card.Description)
		}
	}
	return nil
}
