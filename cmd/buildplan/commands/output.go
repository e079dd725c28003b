package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/buildplan/buildplan/pkg/diag"
	"github.com/buildplan/buildplan/pkg/engine"
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5484D"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5A524"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func severityLabel(s diag.Severity) string {
	if s == diag.SeverityError {
		return errorStyle.Render("error")
	}
	return warningStyle.Render("warning")
}

// printDiagnostics writes one line per diagnostic:
//
//	error: variant.debug.target_sdk: target exceeds compile (...) [version-order] build.hcl:10:3
func printDiagnostics(w io.Writer, ds diag.Diagnostics) {
	for _, d := range ds {
		line := fmt.Sprintf("%s: %s: %s", severityLabel(d.Severity), d.Path, d.Message)
		if d.Rule != "" {
			line += " " + dimStyle.Render("["+d.Rule+"]")
		}
		if d.Pos != nil {
			if loc := d.Pos.String(); loc != "" {
				line += " " + dimStyle.Render(loc)
			}
		}
		fmt.Fprintln(w, line)
	}
}

// printSummary reports the outcome of a run in one line.
func printSummary(w io.Writer, report *engine.Report) {
	ds := report.Diagnostics()
	fmt.Fprintf(w, "%d variant(s) emitted, %d omitted, %d error(s), %d warning(s)\n",
		len(report.Emitted()), len(report.Omitted()), len(ds.Errors()), len(ds.Warnings()))
}

// runSummary is the --json rendering of a run.
type runSummary struct {
	RunID       string           `json:"run_id"`
	Source      string           `json:"source"`
	ExitCode    int              `json:"exit_code"`
	Emitted     []string         `json:"emitted"`
	Omitted     []string         `json:"omitted"`
	Checksum    string           `json:"checksum,omitempty"`
	Error       string           `json:"error,omitempty"`
	Diagnostics diag.Diagnostics `json:"diagnostics"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReportJSON(w io.Writer, report *engine.Report) error {
	s := runSummary{
		RunID:       report.RunID,
		Source:      report.Source,
		ExitCode:    report.ExitCode,
		Emitted:     report.Emitted(),
		Omitted:     report.Omitted(),
		Checksum:    report.Checksum,
		Diagnostics: report.Diagnostics(),
	}
	if s.Diagnostics == nil {
		s.Diagnostics = diag.Diagnostics{}
	}
	if report.Err != nil && report.ExitCode == engine.ExitFatal {
		s.Error = report.Err.Error()
	}
	return writeJSON(w, s)
}

// renderTable lays out rows under headers with a rounded border.
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}
