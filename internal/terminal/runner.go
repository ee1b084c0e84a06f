package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/teemow/meetscribe/internal/app"
	"github.com/teemow/meetscribe/internal/browser"
	"github.com/teemow/meetscribe/internal/logging"
	"github.com/teemow/meetscribe/internal/session"
)

// Options configures a Runner.
type Options struct {
	// DownloadDir is where the download command saves files.
	DownloadDir string
	// Width overrides the detected terminal width.
	Width  int
	Logger *slog.Logger
}

// Runner drives an App from line-oriented input.
type Runner struct {
	app      *app.App
	in       io.Reader
	out      io.Writer
	renderer *Renderer
	opts     Options
	logger   *slog.Logger
}

// NewRunner creates a runner reading commands from in and writing to out.
func NewRunner(a *app.App, in io.Reader, out io.Writer, opts Options) *Runner {
	width := opts.Width
	if width == 0 {
		width = detectWidth(out)
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}
	return &Runner{
		app:      a,
		in:       in,
		out:      out,
		renderer: NewRenderer(out, width),
		opts:     opts,
		logger:   logging.WithComponent(logging.OrDefault(opts.Logger), "terminal"),
	}
}

// detectWidth returns the terminal width of out, or DefaultWidth.
func detectWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return DefaultWidth
	}
	return w
}

// Run checks authentication, then reads commands until quit, end of input
// or ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.app.Init(ctx)
	r.settleAndRender(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		r.renderer.printf("> ")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.Handle(ctx, line)
			if err != nil {
				r.renderer.printf("%s\n", err.Error())
			}
			if quit {
				return nil
			}
			r.settleAndRender(ctx)
		}
	}
}

func (r *Runner) settleAndRender(ctx context.Context) {
	if err := r.app.WaitSettled(ctx); err != nil {
		return
	}
	r.renderer.Alerts(r.app.TakeAlerts())
	r.renderer.Render(r.app.Snapshot())
}

// errUnknownCommand is reported for input the current screen does not accept.
var errUnknownCommand = errors.New("unknown command, type h for help")

// Handle executes one command line. It reports whether the user quit.
func (r *Runner) Handle(ctx context.Context, line string) (quit bool, err error) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	if cmd == "" {
		return false, nil
	}
	if cmd == "q" || cmd == "quit" {
		return true, nil
	}
	if cmd == "h" || cmd == "help" {
		r.renderer.printf("%s\n", commandsHelp(r.app.Snapshot()))
		return false, nil
	}

	state := r.app.Controller().State()

	if n, convErr := strconv.Atoi(cmd); convErr == nil {
		return false, r.selectNumber(ctx, state, n)
	}

	switch state.(type) {
	case session.LoggedOut:
		if cmd == "l" || cmd == "login" {
			// Failure is reported through the alert queue.
			_ = r.app.Login(ctx)
			return false, nil
		}
	case session.Meetings, session.Transcripts:
		switch cmd {
		case "r", "retry", "refresh":
			return false, r.retryOrRefresh()
		case "o", "logout":
			r.app.Logout(ctx)
			return false, nil
		case "b", "m", "back":
			r.app.BackToMeetings(ctx)
			return false, nil
		}
	case session.Content:
		switch cmd {
		case "d", "download":
			return false, r.download(ctx)
		case "b", "back":
			r.app.BackToTranscripts(ctx)
			return false, nil
		case "m", "meetings":
			r.app.BackToMeetings(ctx)
			return false, nil
		}
	}
	return false, errUnknownCommand
}

func (r *Runner) selectNumber(ctx context.Context, state session.State, n int) error {
	var err error
	switch state.(type) {
	case session.Meetings:
		err = r.app.SelectMeetingIndex(ctx, n)
	case session.Transcripts:
		_, err = r.app.OpenTranscriptIndex(n)
	default:
		return errUnknownCommand
	}
	if errors.Is(err, browser.ErrNotFound) {
		return errors.New("enter a number from the list")
	}
	return err
}

func (r *Runner) retryOrRefresh() error {
	if _, err := r.app.Retry(); err == nil {
		return nil
	}
	if _, err := r.app.Refresh(); err != nil {
		return errors.New("nothing to reload while loading")
	}
	return nil
}

func (r *Runner) download(ctx context.Context) error {
	r.renderer.printf("Downloading...\n")
	path, err := r.app.Download(ctx, r.opts.DownloadDir)
	if err != nil {
		r.logger.Debug("download failed", logging.Err(err))
		return fmt.Errorf("download failed: %s", app.UserMessage(err))
	}
	r.renderer.printf("Transcript saved to %s\n", path)
	return nil
}
