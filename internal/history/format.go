package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"toast/internal/notify"
)

// Output formats accepted by Format.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats returns the valid output format names.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatYAML}
}

// Newest returns the records ordered newest first.
func Newest(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

// Format renders records to w in the given format. Color only applies to
// the table format.
func Format(w io.Writer, records []Record, format string, color bool) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(records)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatTable, "":
		return formatTable(w, records, color)
	default:
		return fmt.Errorf("unknown format %q, must be one of: %s", format, strings.Join(Formats(), ", "))
	}
}

func formatTable(w io.Writer, records []Record, color bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"WHEN", "APP", "URGENCY", "TITLE", "BODY"})

	for _, r := range records {
		urgency := r.UrgencyName
		if color {
			urgency = colorizeUrgency(r.Urgency, urgency)
		}
		tw.AppendRow(table.Row{
			humanize.Time(r.Time()),
			r.AppName,
			urgency,
			truncate(r.Title, 40),
			truncate(oneLine(r.Body), 50),
		})
	}

	tw.Render()
	return nil
}

func colorizeUrgency(urgency int, name string) string {
	switch notify.Urgency(urgency) {
	case notify.UrgencyLow:
		return text.Colors{text.Faint}.Sprint(name)
	case notify.UrgencyCritical:
		return text.Colors{text.FgRed, text.Bold}.Sprint(name)
	default:
		return name
	}
}

// oneLine collapses a multi-line body for table cells.
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// ShouldColorize reports whether w is an interactive terminal.
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
