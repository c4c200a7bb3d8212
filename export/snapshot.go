package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/go-catalog-sync/store"
)

// NewWriter creates the writer for format. The dual format writes filename as CSV and a sibling
// .json file holding the same records as JSONL.
func NewWriter(format, filename string) (Writer, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteSnapshot replaces filename with every committed record in the store. It returns the number
// of records written.
func WriteSnapshot(ctx context.Context, lister store.Lister, format, filename string) (int, error) {
	books, err := lister.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	writer, err := NewWriter(format, filename)
	if err != nil {
		return 0, err
	}
	if err := writer.Write(books); err != nil {
		writer.Close()
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}
	if err := writer.Validate(); err != nil {
		return 0, err
	}

	slog.Info("snapshot written",
		slog.String("file", filename),
		slog.String("format", format),
		slog.Int("records", len(books)),
	)
	return len(books), nil
}
