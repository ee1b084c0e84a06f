package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/browser"
)

// contentPreviewLength is how much of a downloaded transcript is echoed.
const contentPreviewLength = 500

func newTranscriptsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: "List, read and download transcripts",
	}
	cmd.AddCommand(newTranscriptsListCmd(flags))
	cmd.AddCommand(newTranscriptsShowCmd(flags))
	cmd.AddCommand(newTranscriptsDownloadCmd(flags))
	return cmd
}

func newTranscriptsListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list MEETING_ID",
		Short: "List the transcripts of a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd, flags)
			if err != nil {
				return err
			}
			list, err := env.client.ListTranscripts(cmd.Context(), args[0])
			if err != nil {
				return failed(browser.LabelTranscriptsFailed, err)
			}
			return writeOutput(cmd.OutOrStdout(), env.cfg.OutputFormat, list, func(w io.Writer) error {
				return writeTranscriptsText(w, list)
			})
		},
	}
}

func writeTranscriptsText(w io.Writer, list *api.TranscriptList) error {
	if list.Meeting != nil && list.Meeting.Title != "" {
		printf(w, "Meeting: %s\n", list.Meeting.Title)
	}
	if len(list.Transcripts) == 0 {
		printf(w, "%s\n", browser.LabelNoTranscripts)
		printf(w, "%s\n", browser.LabelNoTranscriptsHint)
		return nil
	}
	for i, t := range list.Transcripts {
		card := browser.NewTranscriptCard(t, nil)
		printf(w, "%2d. %s\n", i+1, card.Name)
		printf(w, "    ID: %s\n", card.FileID)
		printf(w, "    Size: %s\n", card.Size)
		printf(w, "    Modified: %s\n", card.Modified)
		if card.MeetingDate != "" {
			printf(w, "    Meeting date: %s\n", card.MeetingDate)
		}
		if t.WebViewLink != "" {
			printf(w, "    Link: %s\n", t.WebViewLink)
		}
	}
	return nil
}

func newTranscriptsShowCmd(flags *globalFlags) *cobra.Command {
	var preview int

	cmd := &cobra.Command{
		Use:   "show FILE_ID",
		Short: "Print the text of a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd, flags)
			if err != nil {
				return err
			}
			content, err := env.client.TranscriptContent(cmd.Context(), args[0])
			if err != nil {
				return failed("Failed to load transcript content", err)
			}
			transcript := api.TranscriptContent{
				TranscriptSummary: api.TranscriptSummary{FileID: args[0]},
				Content:           content,
			}
			return writeOutput(cmd.OutOrStdout(), env.cfg.OutputFormat, transcript, func(w io.Writer) error {
				text := content
				if preview > 0 {
					text = previewText(content, preview)
				}
				printf(w, "%s\n", text)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&preview, "preview", 0, "Print only the first N characters (0 prints everything)")
	return cmd
}

func newTranscriptsDownloadCmd(flags *globalFlags) *cobra.Command {
	var (
		dir       string
		noPreview bool
	)

	cmd := &cobra.Command{
		Use:   "download FILE_ID",
		Short: "Save a transcript file",
		Long: `Download a transcript into the download directory. The file is named as
the backend suggests; an existing file is never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCommandEnv(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dir") {
				env.cfg.DownloadDir = dir
			}

			path, err := browser.SaveDownload(cmd.Context(), env.client, nil, args[0], args[0], env.cfg.DownloadDir)
			if err != nil {
				return failed("download failed", err)
			}

			out := cmd.OutOrStdout()
			printf(out, "Transcript saved to %s\n", path)
			if noPreview {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			printf(out, "\nPreview:\n%s\n", previewText(string(data), contentPreviewLength))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Target directory. Can also use MEETSCRIBE_DOWNLOAD_DIR env var.")
	cmd.Flags().BoolVar(&noPreview, "no-preview", false, "Do not print the start of the saved transcript")
	return cmd
}

func previewText(s string, n int) string {
	return browser.ContentView{Content: s}.Preview(n)
}
