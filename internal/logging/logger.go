package logging

import (
	"fmt"
	"os"

	clog "github.com/charmbracelet/log"
)

// L is the process logger. Components derive their own with For.
var L = clog.NewWithOptions(os.Stderr, clog.Options{ReportTimestamp: true})

// Configure sets the level and, in production, switches to JSON lines.
func Configure(level string, production bool) error {
	lvl, err := clog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	L.SetLevel(lvl)
	if production {
		L.SetFormatter(clog.JSONFormatter)
	}
	return nil
}

func For(component string) *clog.Logger {
	return L.With("component", component)
}
