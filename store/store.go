// Package store persists catalog records keyed by title.
//
// Writes are buffered: Upsert stages a record and Commit makes every staged write durable.
// Reads see the caller's own staged writes. Rollback discards them.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store is the record store consumed by the crawler.
type Store interface {
	GetByTitle(ctx context.Context, title string) (*models.Book, bool, error)
	Upsert(ctx context.Context, book *models.Book) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Lister can enumerate every committed record, ordered by title.
type Lister interface {
	List(ctx context.Context) ([]models.Book, error)
}

// Backend is a Store that can also list and be closed.
type Backend interface {
	Store
	Lister
	io.Closer
}

// Open builds the backend named by driver.
func Open(ctx context.Context, driver, dsn string) (Backend, error) {
	switch strings.ToLower(driver) {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		p, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

func validate(book *models.Book) error {
	if book == nil {
		return fmt.Errorf("upsert: book is nil")
	}
	if book.ID == "" {
		return fmt.Errorf("upsert %q: missing id", book.Title)
	}
	if book.Title == "" {
		return fmt.Errorf("upsert %s: missing title", book.ID)
	}
	return nil
}
