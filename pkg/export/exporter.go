package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/steam-reviews/pkg/review"
)

// Format names used in metrics and Summary.Files keys.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// ErrNoOutputs is returned when both output paths are empty.
var ErrNoOutputs = errors.New("no export outputs configured")

var (
	rowsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_export_rows_total",
		Help: "Rows written to export files by format",
	}, []string{"format"})

	exportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_export_errors_total",
		Help: "Failed export writes by format",
	}, []string{"format"})

	exportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "steam_export_duration_seconds",
		Help:    "Time to write one export file",
		Buckets: prometheus.DefBuckets,
	}, []string{"format"})
)

// Options name the destination files. An empty path skips that format.
type Options struct {
	CSVPath     string
	ParquetPath string
}

// Summary reports what an export wrote.
type Summary struct {
	Total    int
	Positive int
	Negative int
	// Files maps format to the path written. Failed formats are absent.
	Files map[string]string
}

// Exporter writes review records to CSV and Parquet.
type Exporter struct {
	opts   Options
	logger zerolog.Logger
}

// New creates an exporter.
func New(opts Options) *Exporter {
	return &Exporter{
		opts:   opts,
		logger: log.With().Str("component", "exporter").Logger(),
	}
}

// Export writes records to every configured format. Each file appears
// atomically or not at all. A failing format does not stop the other one;
// all failures are joined into the returned error. The summary tally is
// always filled.
func (e *Exporter) Export(records []review.Record) (Summary, error) {
	tally := review.Count(records)
	summary := Summary{
		Total:    tally.Total(),
		Positive: tally.Positive,
		Negative: tally.Negative,
		Files:    make(map[string]string, 2),
	}

	if e.opts.CSVPath == "" && e.opts.ParquetPath == "" {
		return summary, ErrNoOutputs
	}

	var errs []error
	if e.opts.CSVPath != "" {
		if err := e.write(FormatCSV, e.opts.CSVPath, records, WriteCSV); err != nil {
			errs = append(errs, err)
		} else {
			summary.Files[FormatCSV] = e.opts.CSVPath
		}
	}
	if e.opts.ParquetPath != "" {
		if err := e.write(FormatParquet, e.opts.ParquetPath, records, WriteParquet); err != nil {
			errs = append(errs, err)
		} else {
			summary.Files[FormatParquet] = e.opts.ParquetPath
		}
	}

	e.logger.Info().
		Int("total", summary.Total).
		Int("positive", summary.Positive).
		Int("negative", summary.Negative).
		Int("files", len(summary.Files)).
		Msg("Export finished")

	return summary, errors.Join(errs...)
}

type writeFunc func(io.Writer, []review.Record) error

func (e *Exporter) write(format, path string, records []review.Record, fn writeFunc) error {
	start := time.Now()
	if err := writeAtomic(path, func(w io.Writer) error { return fn(w, records) }); err != nil {
		exportErrorsTotal.WithLabelValues(format).Inc()
		e.logger.Error().Err(err).Str("format", format).Str("path", path).Msg("Export failed")
		return fmt.Errorf("export %s to %s: %w", format, path, err)
	}

	exportDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	rowsWrittenTotal.WithLabelValues(format).Add(float64(len(records)))
	e.logger.Debug().Str("format", format).Str("path", path).Int("rows", len(records)).Msg("Wrote export file")
	return nil
}

// writeAtomic writes to a temp file beside path and renames it into place.
func writeAtomic(path string, fn func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = fn(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
