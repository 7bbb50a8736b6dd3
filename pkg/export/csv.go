package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Sternrassler/steam-reviews/pkg/review"
)

// WriteCSV writes records with a header row in review.Columns order.
func WriteCSV(w io.Writer, records []review.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(review.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(review.Columns))
	for i, r := range records {
		row[0] = r.ReviewID
		row[1] = r.AuthorID
		row[2] = strconv.FormatInt(r.AuthorPlaytimeMinutes, 10)
		row[3] = r.Text
		row[4] = strconv.FormatBool(r.Recommended)
		row[5] = strconv.FormatInt(r.HelpfulVotes, 10)
		row[6] = strconv.FormatInt(r.FunnyVotes, 10)
		row[7] = r.Sentiment
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a file written by WriteCSV. Text containing "\r\n" comes
// back unchanged.
func ReadCSV(path string) ([]review.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(keepFieldCRLF(data)))
	cr.FieldsPerRecord = len(review.Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range review.Columns {
		if header[i] != name {
			return nil, fmt.Errorf("csv column %d is %q, want %q", i, header[i], name)
		}
	}

	records := []review.Record{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		r, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, r)
	}
}

// keepFieldCRLF doubles the "\r" of every "\r\n" so that csv.Reader, which
// drops one "\r" before each "\n", yields the original field bytes. WriteCSV
// ends rows with "\n", so any "\r\n" belongs to field text. Files with
// "\r\n" row endings are left alone.
func keepFieldCRLF(data []byte) []byte {
	header, _, found := bytes.Cut(data, []byte("\n"))
	if !found || bytes.HasSuffix(header, []byte("\r")) {
		return data
	}
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\r\r\n"))
}

func parseRow(row []string) (review.Record, error) {
	var (
		r   review.Record
		err error
	)
	r.ReviewID = row[0]
	r.AuthorID = row[1]
	if r.AuthorPlaytimeMinutes, err = strconv.ParseInt(row[2], 10, 64); err != nil {
		return r, fmt.Errorf("author_playtime_minutes: %w", err)
	}
	r.Text = row[3]
	if r.Recommended, err = strconv.ParseBool(row[4]); err != nil {
		return r, fmt.Errorf("recommended: %w", err)
	}
	if r.HelpfulVotes, err = strconv.ParseInt(row[5], 10, 64); err != nil {
		return r, fmt.Errorf("helpful_votes: %w", err)
	}
	if r.FunnyVotes, err = strconv.ParseInt(row[6], 10, 64); err != nil {
		return r, fmt.Errorf("funny_votes: %w", err)
	}
	r.Sentiment = row[7]
	return r, nil
}
