package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/aluiziolira/go-catalog-sync/models"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const sqliteUpsert = `INSERT INTO books (id, title, price, availability, rating, image_url, category, url)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (title) DO UPDATE SET
	price = excluded.price,
	availability = excluded.availability,
	rating = excluded.rating,
	image_url = excluded.image_url,
	category = excluded.category,
	url = excluded.url`

const sqliteColumns = `id, title, price, availability, rating, image_url, category, url`

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore keeps records in a local SQLite file. Staged writes live in an open transaction
// until Commit.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
	tx *sql.Tx
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: a ":memory:" database exists per connection, and the file lock is per
	// connection anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) querier() sqlQuerier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// GetByTitle looks up a record by exact title.
func (s *SQLiteStore) GetByTitle(ctx context.Context, title string) (*models.Book, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.querier().QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM books WHERE title = ?`, title)
	var book models.Book
	err := row.Scan(&book.ID, &book.Title, &book.Price, &book.Availability, &book.Rating, &book.ImageURL, &book.Category, &book.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get by title %q: %w", title, err)
	}
	return &book, true, nil
}

// Upsert stages a write, opening a transaction if none is pending.
func (s *SQLiteStore) Upsert(ctx context.Context, book *models.Book) error {
	if err := validate(book); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin sqlite transaction: %w", err)
		}
		s.tx = tx
	}

	_, err := s.tx.ExecContext(ctx, sqliteUpsert,
		book.ID, book.Title, book.Price, book.Availability, book.Rating, book.ImageURL, book.Category, book.URL)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", book.Title, err)
	}
	return nil
}

// Commit commits the pending transaction, if any.
func (s *SQLiteStore) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite transaction: %w", err)
	}
	return nil
}

// Rollback abandons the pending transaction, if any.
func (s *SQLiteStore) Rollback(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbackLocked()
}

func (s *SQLiteStore) rollbackLocked() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback sqlite transaction: %w", err)
	}
	return nil
}

// List returns every record ordered by title.
func (s *SQLiteStore) List(ctx context.Context) ([]models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.querier().QueryContext(ctx, `SELECT `+sqliteColumns+` FROM books ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var book models.Book
		if err := rows.Scan(&book.ID, &book.Title, &book.Price, &book.Availability, &book.Rating, &book.ImageURL, &book.Category, &book.URL); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// Close abandons staged writes and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rollbackErr := s.rollbackLocked()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return rollbackErr
}
