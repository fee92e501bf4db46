package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// OutputFormatter handles formatted output to the console
type OutputFormatter struct {
	out    io.Writer
	errOut io.Writer

	ok   *color.Color
	warn *color.Color
	fail *color.Color
}

// NewOutputFormatter creates an OutputFormatter writing to out and errOut.
// Status prefixes are colored only when colors is true.
func NewOutputFormatter(out, errOut io.Writer, colors bool) *OutputFormatter {
	o := &OutputFormatter{
		out:    out,
		errOut: errOut,
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{o.ok, o.warn, o.fail} {
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return o
}

// outputFor returns the formatter for a command. Colors are used when the
// command writes human-readable text to a terminal.
func outputFor(cmd *cobra.Command) *OutputFormatter {
	out := cmd.OutOrStdout()
	return NewOutputFormatter(out, cmd.ErrOrStderr(), useColors(out))
}

func useColors(out io.Writer) bool {
	return !IsJSONOutput() && !color.NoColor && out == os.Stdout
}

// Success prints a success message with a checkmark prefix
func (o *OutputFormatter) Success(format string, args ...any) {
	fmt.Fprintf(o.out, "%s %s\n", o.ok.Sprint("[OK]"), fmt.Sprintf(format, args...))
}

// Info prints an informational message
func (o *OutputFormatter) Info(format string, args ...any) {
	fmt.Fprintf(o.out, "%s\n", fmt.Sprintf(format, args...))
}

// Warn prints a warning message with a warning prefix
func (o *OutputFormatter) Warn(format string, args ...any) {
	fmt.Fprintf(o.errOut, "%s %s\n", o.warn.Sprint("[WARN]"), fmt.Sprintf(format, args...))
}

// Error prints an error message with an error prefix
func (o *OutputFormatter) Error(format string, args ...any) {
	fmt.Fprintf(o.errOut, "%s %s\n", o.fail.Sprint("[ERROR]"), fmt.Sprintf(format, args...))
}

// JSON outputs data as formatted JSON
func (o *OutputFormatter) JSON(data any) error {
	encoder := json.NewEncoder(o.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Table prints rows under a header and a dashed separator line.
func (o *OutputFormatter) Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)

	if len(headers) > 0 {
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		separators := make([]string, len(headers))
		for i, h := range headers {
			separators[i] = strings.Repeat("-", len(h))
		}
		fmt.Fprintln(w, strings.Join(separators, "\t"))
	}

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// Writer returns the standard output writer.
func (o *OutputFormatter) Writer() io.Writer {
	return o.out
}
