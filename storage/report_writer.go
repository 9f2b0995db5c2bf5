package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"

	"datahub-exporter/models"
)

// Downstream consumers parse these line formats; they must stay stable.
const (
	phoneHeader = "Hotel|Arrival|Departure|FullName|Phone|Price"
	emailHeader = "Hotel|Arrival|Departure|FullName|Email|Phone|Price"
)

var csvHeader = []string{
	"Hotel", "Channel", "Arrival", "Departure", "GivenName",
	"Surname", "Phone", "Email", "Price", "Currency",
}

// TextReportWriter writes one pipe-delimited report file for a property.
// It is safe for concurrent use.
type TextReportWriter struct {
	mu        sync.Mutex
	file      *os.File
	writer    *bufio.Writer
	withEmail bool
}

// NewTextReportWriter creates (or truncates) the report file at the given
// path and writes the header line. withEmail selects the email-mode layout.
func NewTextReportWriter(path string, withEmail bool) (*TextReportWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create file %q: %w", path, err)
	}

	w := bufio.NewWriter(f)
	header := phoneHeader
	if withEmail {
		header = emailHeader
	}
	if _, err := w.WriteString(header + "\n"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("report: write header: %w", err)
	}

	return &TextReportWriter{file: f, writer: w, withEmail: withEmail}, nil
}

// WriteRecord appends one report line.
func (w *TextReportWriter) WriteRecord(hotel string, r *models.BookingRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields := []string{hotel, r.Arrival, r.Departure, r.FullName()}
	if w.withEmail {
		fields = append(fields, r.Email)
	}
	fields = append(fields, r.Phone, r.Price)

	if _, err := w.writer.WriteString(strings.Join(fields, "|") + "\n"); err != nil {
		return fmt.Errorf("report: write line: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *TextReportWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// CSVReportWriter writes the structured semicolon-delimited export for a
// property, with the fixed 10-column header. It is safe for concurrent use.
type CSVReportWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVReportWriter creates (or truncates) the CSV file at the given path
// and writes the header row.
func NewCSVReportWriter(path string) (*CSVReportWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv report: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv report: write header: %w", err)
	}
	w.Flush()

	return &CSVReportWriter{file: f, writer: w}, nil
}

// WriteRecord appends one record row.
func (w *CSVReportWriter) WriteRecord(hotel string, r *models.BookingRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row := []string{
		hotel, r.Channel, r.Arrival, r.Departure, r.GivenName,
		r.Surname, r.Phone, r.Email, r.Price, r.Currency,
	}
	if err := w.writer.Write(row); err != nil {
		return fmt.Errorf("csv report: write row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *CSVReportWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
