// Package ui renders the CLI's human-facing output: status lines and the
// end-of-run summary table. Structured logs go through zerolog instead.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// UI writes colored status lines to Out and warnings to ErrOut.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// ReasonColor colors a terminal reason: green for a normal end, red for a
// failure.
func ReasonColor(reason string, failed bool) string {
	if failed {
		return red(reason)
	}
	return green(reason)
}

// Share formats n as a percentage of total.
func Share(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(total))
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// Summary is what the CLI reports after a run.
type Summary struct {
	AppID    string
	Reason   string
	Failed   bool
	Requests int
	Total    int
	Positive int
	Negative int
	// Files maps format name to output path.
	Files map[string]string
	// UpstreamTotal is the review count the API advertised; zero if unknown.
	UpstreamTotal int
}

// RenderSummary prints the sentiment tally and the output files.
func (u *UI) RenderSummary(s Summary) error {
	if s.Reason != "" {
		u.Info("App %s: %d reviews in %d requests, stopped: %s",
			cyan(s.AppID), s.Total, s.Requests, ReasonColor(s.Reason, s.Failed))
	}
	if s.UpstreamTotal > 0 {
		u.VerboseLog("API reports %d reviews in total for these filters", s.UpstreamTotal)
	}

	table := u.Table([]string{"Sentiment", "Reviews", "Share"})
	rows := [][]string{
		{green("Positive"), strconv.Itoa(s.Positive), Share(s.Positive, s.Total)},
		{red("Negative"), strconv.Itoa(s.Negative), Share(s.Negative, s.Total)},
		{"Total", strconv.Itoa(s.Total), Share(s.Total, s.Total)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	formats := make([]string, 0, len(s.Files))
	for f := range s.Files {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	for _, f := range formats {
		u.Success("Wrote %s %s", f, s.Files[f])
	}
	return nil
}
