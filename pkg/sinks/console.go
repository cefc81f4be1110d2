package sinks

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

const consoleSinkID = "console"

// Console prints the run outcome for a terminal user: the final message on
// out, the error description on errOut.
type Console struct {
	id     string
	out    io.Writer
	errOut io.Writer
	ok     *color.Color
	bad    *color.Color
}

// NewConsole builds a console sink. Nil writers default to stdout and stderr.
func NewConsole(out, errOut io.Writer, noColor bool) *Console {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	if noColor {
		ok.DisableColor()
		bad.DisableColor()
	}
	return &Console{id: consoleSinkID, out: out, errOut: errOut, ok: ok, bad: bad}
}

func newConsoleSinkFromConfig(_ context.Context, cfg SinkConfig, _ Logger) (Sink, error) {
	noColor := cfg.Console != nil && cfg.Console.NoColor
	c := NewConsole(nil, nil, noColor)
	if cfg.ID != "" {
		c.id = cfg.ID
	}
	return c, nil
}

func (c *Console) ID() string   { return c.id }
func (c *Console) Type() string { return TypeConsole }

// Deliver writes a blank line, then "✅ Final message:" or "❌ Error:" followed
// by the run details.
func (c *Console) Deliver(_ context.Context, evt Event) error {
	if evt.Run.Success {
		if _, err := fmt.Fprintln(c.out); err != nil {
			return fmt.Errorf("write console message: %w", err)
		}
		if _, err := c.ok.Fprint(c.out, "✅ Final message:"); err != nil {
			return fmt.Errorf("write console message: %w", err)
		}
		_, err := fmt.Fprintf(c.out, "\n%s\n", evt.Run.Message)
		return err
	}

	if _, err := fmt.Fprintln(c.errOut); err != nil {
		return fmt.Errorf("write console error: %w", err)
	}
	if _, err := c.bad.Fprint(c.errOut, "❌ Error:"); err != nil {
		return fmt.Errorf("write console error: %w", err)
	}
	_, err := fmt.Fprintf(c.errOut, " %s\n", evt.Run.Error)
	return err
}
