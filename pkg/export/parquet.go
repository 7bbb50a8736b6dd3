package export

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/Sternrassler/steam-reviews/pkg/review"
)

// WriteParquet writes records as a single-file Parquet table whose schema
// follows the review.Record field order.
func WriteParquet(w io.Writer, records []review.Record) error {
	pw := parquet.NewGenericWriter[review.Record](w, parquet.Compression(&parquet.Snappy))
	if len(records) > 0 {
		if _, err := pw.Write(records); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads a file written by WriteParquet.
func ReadParquet(path string) ([]review.Record, error) {
	records, err := parquet.ReadFile[review.Record](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	if records == nil {
		records = []review.Record{}
	}
	return records, nil
}

// ParquetColumns returns the top-level column names stored in a Parquet file.
func ParquetColumns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}
	return names, nil
}
