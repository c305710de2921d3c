package recorder

import (
	"fmt"
	"io"
	"os"

	"github.com/AstraSolis/quicklog/internal/format"
	"github.com/AstraSolis/quicklog/pkg/model"
)

// consoleSink prints entries to the process streams: severities below
// WARN to stdout, WARN and above to stderr. Color is applied only when
// the destination is an interactive terminal.
type consoleSink struct {
	out    io.Writer
	err    io.Writer
	outTTY bool
	errTTY bool
}

func newConsoleSink() *consoleSink {
	return &consoleSink{
		out:    os.Stdout,
		err:    os.Stderr,
		outTTY: isTerminal(os.Stdout),
		errTTY: isTerminal(os.Stderr),
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// write renders e and prints it. A failed primary write falls back to
// the plain legacy line; only a failure of both is reported.
func (c *consoleSink) write(e *model.LogEntry) error {
	dst, tty := c.out, c.outTTY
	if e.Level >= model.LevelWarn {
		dst, tty = c.err, c.errTTY
	}

	opts := format.DefaultConsoleOptions(e.Level)
	opts.Colors = tty
	if _, err := fmt.Fprintln(dst, format.Console(e, opts)); err != nil {
		if _, err2 := fmt.Fprintln(dst, format.Legacy(e)); err2 != nil {
			return fmt.Errorf("console write: %w", err2)
		}
	}
	return nil
}
