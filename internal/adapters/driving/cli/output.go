package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatTSV   = "tsv"
)

// KeyOutput is the config key for the default output format.
const KeyOutput = "output"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

func validateOutputFormat() error {
	switch outputFormat {
	case "", FormatTable, FormatJSON, FormatTSV:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or tsv)", outputFormat)
	}
}

// format returns the output format from --output, the config, or table.
func format() string {
	if outputFormat != "" {
		return outputFormat
	}
	if svc != nil && svc.Config != nil {
		switch f := svc.Config.GetString(KeyOutput); f {
		case FormatJSON, FormatTSV, FormatTable:
			return f
		}
	}
	return FormatTable
}

// render prints rows in the selected format. value is what JSON output
// encodes; headers may be nil for bare grids.
func render(cmd *cobra.Command, headers []string, rows [][]string, value any) error {
	w := cmd.OutOrStdout()
	switch format() {
	case FormatJSON:
		return writeJSON(w, value)
	case FormatTSV:
		return writeTSV(w, headers, rows)
	default:
		if len(rows) == 0 {
			_, err := fmt.Fprintln(w, mutedStyle.Render("(none)"))
			return err
		}
		_, err := fmt.Fprintln(w, renderTable(headers, rows))
		return err
	}
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if len(headers) > 0 {
		t = t.Headers(headers...)
	}
	return t.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var tsvEscaper = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func writeTSV(w io.Writer, headers []string, rows [][]string) error {
	if len(headers) > 0 {
		if _, err := fmt.Fprintln(w, strings.Join(headers, "\t")); err != nil {
			return err
		}
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = tsvEscaper.Replace(c)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// stringify renders a cell value for table and TSV output.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
