package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"housing-navigator/models"
)

// CSVWriter appends raw extractions to a CSV file, one audit row per
// scraped record before any normalization touches it.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens (or creates) the CSV file and writes the header row
// when the file is new.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	info, statErr := os.Stat(path)
	isNew := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}

	w := &CSVWriter{file: file, writer: csv.NewWriter(file)}
	if isNew {
		header := []string{
			"scraped_at", "source", "title", "address", "raw_price",
			"raw_bedrooms", "raw_bathrooms", "raw_area", "raw_date",
			"url", "image_url", "confidence",
		}
		if err := w.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.writer.Flush()
	}
	return w, nil
}

// WriteRaw appends one row per raw listing and flushes.
func (w *CSVWriter) WriteRaw(listings []*models.RawListing) error {
	for _, r := range listings {
		row := []string{
			r.ScrapedAt.Format(time.RFC3339),
			r.SourceName,
			r.Title,
			r.Address,
			r.RawPrice,
			r.RawBedrooms,
			r.RawBathrooms,
			r.RawArea,
			r.RawDate,
			r.URL,
			r.ImageURL,
			string(r.Confidence),
		}
		if err := w.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.writer.Flush()
	return w.writer.Error()
}

func (w *CSVWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
