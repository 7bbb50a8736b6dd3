package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/steam-reviews/internal/ui"
	"github.com/Sternrassler/steam-reviews/pkg/export"
	"github.com/Sternrassler/steam-reviews/pkg/review"
)

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <file>",
		Short: "Print the sentiment tally of a CSV or Parquet export",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runSummarize(args[0])
		},
	}
}

func (a *app) runSummarize(path string) error {
	records, err := readExport(path)
	if err != nil {
		return err
	}

	tally := review.Count(records)
	a.ui.Info("%s: %d reviews", path, tally.Total())
	return a.ui.RenderSummary(ui.Summary{
		Total:    tally.Total(),
		Positive: tally.Positive,
		Negative: tally.Negative,
	})
}

func readExport(path string) ([]review.Record, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return export.ReadCSV(path)
	case ".parquet":
		return export.ReadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported export format %q (want .csv or .parquet)", ext)
	}
}
