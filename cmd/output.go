package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/teemow/meetscribe/internal/api"
	"github.com/teemow/meetscribe/internal/config"
)

// writeOutput prints v as JSON or YAML, or calls text for the text format.
func writeOutput(w io.Writer, format config.OutputFormat, v any, text func(io.Writer) error) error {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case config.OutputFormatText, "":
		return text(w)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// userError carries the one-line message shown for a failed backend call
// while keeping the cause inspectable.
type userError struct {
	action string
	err    error
}

func (e *userError) Error() string {
	return e.action + ": " + api.UserMessage(e.err, "")
}

func (e *userError) Unwrap() error {
	return e.err
}

func failed(action string, err error) error {
	return &userError{action: action, err: err}
}
