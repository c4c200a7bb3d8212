// Package export writes store snapshots to CSV and newline-delimited JSON files.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// Writer receives batches of records and owns its output file.
type Writer interface {
	Write(books []models.Book) error
	Close() error
	Validate() error
}

var csvHeader = []string{"id", "title", "price", "availability", "rating", "image_url", "category", "url"}

// snapshotFile is the buffered output file shared by every format.
type snapshotFile struct {
	name string
	file *os.File
	buf  *bufio.Writer
}

func createSnapshotFile(filename string) (*snapshotFile, error) {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filename, err)
	}
	return &snapshotFile{name: filename, file: f, buf: bufio.NewWriter(f)}, nil
}

func (sf *snapshotFile) close() error {
	flushErr := sf.buf.Flush()
	closeErr := sf.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush %s: %w", sf.name, flushErr)
	}
	return closeErr
}

// validate checks the file exists on disk. An empty snapshot is still a valid snapshot.
func (sf *snapshotFile) validate() error {
	if _, err := os.Stat(sf.name); err != nil {
		return fmt.Errorf("stat %s: %w", sf.name, err)
	}
	return nil
}

// CSVWriter writes one header row followed by one row per record.
type CSVWriter struct {
	out *snapshotFile
	csv *csv.Writer
}

// NewCSVWriter creates filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	out, err := createSnapshotFile(filename)
	if err != nil {
		return nil, err
	}
	cw := &CSVWriter{out: out, csv: csv.NewWriter(out.buf)}
	if err := cw.csv.Write(csvHeader); err != nil {
		out.close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return cw, nil
}

// Write appends one row per book.
func (cw *CSVWriter) Write(books []models.Book) error {
	for _, book := range books {
		err := cw.csv.Write([]string{
			book.ID,
			book.Title,
			strconv.FormatFloat(book.Price, 'f', 2, 64),
			book.Availability,
			strconv.Itoa(book.Rating),
			book.ImageURL,
			book.Category,
			book.URL,
		})
		if err != nil {
			return fmt.Errorf("write csv record %q: %w", book.Title, err)
		}
	}
	cw.csv.Flush()
	return cw.csv.Error()
}

// Close flushes pending rows and closes the file.
func (cw *CSVWriter) Close() error {
	cw.csv.Flush()
	if err := cw.csv.Error(); err != nil {
		cw.out.close()
		return fmt.Errorf("flush csv: %w", err)
	}
	return cw.out.close()
}

// Validate reports whether the snapshot file exists.
func (cw *CSVWriter) Validate() error {
	return cw.out.validate()
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	out *snapshotFile
	enc *json.Encoder
}

// NewJSONWriter creates filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	out, err := createSnapshotFile(filename)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{out: out, enc: json.NewEncoder(out.buf)}, nil
}

// Write appends one line per book.
func (jw *JSONWriter) Write(books []models.Book) error {
	for i := range books {
		if err := jw.enc.Encode(&books[i]); err != nil {
			return fmt.Errorf("encode json record %q: %w", books[i].Title, err)
		}
	}
	return nil
}

// Close flushes pending lines and closes the file.
func (jw *JSONWriter) Close() error {
	return jw.out.close()
}

// Validate reports whether the snapshot file exists.
func (jw *JSONWriter) Validate() error {
	return jw.out.validate()
}
