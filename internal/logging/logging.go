package logging

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Setup initializes the global slog logger using charmbracelet/log as the
// backend. Verbosity counts the -v flags: 0 warn, 1 info, 2 debug, 3+
// trace (rendered at debug, the backend's lowest level). Non-TTY output
// switches to JSON format.
func Setup(verbosity int) {
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	})

	switch {
	case verbosity <= 0:
		handler.SetLevel(charmlog.WarnLevel)
	case verbosity == 1:
		handler.SetLevel(charmlog.InfoLevel)
	default:
		handler.SetLevel(charmlog.DebugLevel)
	}

	if !isTerminal() {
		handler.SetFormatter(charmlog.JSONFormatter)
	}

	slog.SetDefault(slog.New(handler))
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
