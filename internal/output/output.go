// Package output provides consistent CLI output formatting for shop results
// and status messages.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/shopsearch/internal/shop"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	useColor bool
}

// New creates a Writer. Color is on only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return &Writer{
		out:      out,
		useColor: IsTTY(out) && !noColor(),
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func noColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

func (w *Writer) paint(code, s string) string {
	if !w.useColor {
		return s
	}
	return code + s + ansiReset
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Status(w.paint(ansiGreen, "✓"), fmt.Sprintf(format, args...))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status(w.paint(ansiYellow, "!"), fmt.Sprintf(format, args...))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Status(w.paint(ansiRed, "✗"), fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Results renders one page of shops as an aligned table followed by a
// summary line. With explain set, the summary names the engine that
// answered and any fallback reason.
func (w *Writer) Results(res *shop.Result, page shop.Page, explain bool) {
	if len(res.Items) == 0 {
		w.Status("", w.paint(ansiDim, "no shops found"))
	} else {
		tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, w.paint(ansiBold, "ID\tNAME\tCREATED\tVACATION\tPRODUCTS\tCATEGORIES"))
		for _, r := range res.Items {
			_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n",
				r.ID, r.Name, shop.FormatDate(r.CreatedAt), yesNo(r.InVacations), r.NbProducts, r.NbCategories)
		}
		_ = tw.Flush()
	}

	start, end := page.Window(res.TotalCount)
	summary := fmt.Sprintf("%d-%d of %d", start+1, end, res.TotalCount)
	if len(res.Items) == 0 {
		summary = fmt.Sprintf("0 of %d", res.TotalCount)
	}
	if explain {
		summary += " via " + string(res.Source)
		if res.FallbackReason != "" {
			summary += " (" + res.FallbackReason + ")"
		}
	}
	w.Newline()
	w.Status("", w.paint(ansiDim, summary))
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
