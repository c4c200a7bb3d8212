package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aluiziolira/go-catalog-sync/models"
)

//go:embed postgres_schema.sql
var postgresSchema string

const postgresUpsert = `INSERT INTO books (id, title, price, availability, rating, image_url, category, url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (title) DO UPDATE SET
	price = EXCLUDED.price,
	availability = EXCLUDED.availability,
	rating = EXCLUDED.rating,
	image_url = EXCLUDED.image_url,
	category = EXCLUDED.category,
	url = EXCLUDED.url`

const postgresColumns = `id::text, title, price::float8, availability, rating::int, image_url, category, url`

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps records in a Postgres table through a pgx pool.
type PostgresStore struct {
	mu   sync.Mutex
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) querier() pgQuerier {
	if p.tx != nil {
		return p.tx
	}
	return p.pool
}

// GetByTitle looks up a record by exact title.
func (p *PostgresStore) GetByTitle(ctx context.Context, title string) (*models.Book, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	row := p.querier().QueryRow(ctx, `SELECT `+postgresColumns+` FROM books WHERE title = $1`, title)
	var book models.Book
	err := row.Scan(&book.ID, &book.Title, &book.Price, &book.Availability, &book.Rating, &book.ImageURL, &book.Category, &book.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get by title %q: %w", title, err)
	}
	return &book, true, nil
}

// Upsert stages a write, opening a transaction if none is pending.
func (p *PostgresStore) Upsert(ctx context.Context, book *models.Book) error {
	if err := validate(book); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tx == nil {
		tx, err := p.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin postgres transaction: %w", err)
		}
		p.tx = tx
	}

	_, err := p.tx.Exec(ctx, postgresUpsert,
		book.ID, book.Title, book.Price, book.Availability, book.Rating, book.ImageURL, book.Category, book.URL)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", book.Title, err)
	}
	return nil
}

// Commit commits the pending transaction, if any.
func (p *PostgresStore) Commit(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tx == nil {
		return nil
	}
	tx := p.tx
	p.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit postgres transaction: %w", err)
	}
	return nil
}

// Rollback abandons the pending transaction, if any.
func (p *PostgresStore) Rollback(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rollbackLocked(ctx)
}

func (p *PostgresStore) rollbackLocked(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}
	tx := p.tx
	p.tx = nil
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback postgres transaction: %w", err)
	}
	return nil
}

// List returns every record ordered by title.
func (p *PostgresStore) List(ctx context.Context) ([]models.Book, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows, err := p.querier().Query(ctx, `SELECT `+postgresColumns+` FROM books ORDER BY title`)
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

// Close abandons staged writes and closes the pool.
func (p *PostgresStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.rollbackLocked(context.Background())
	p.pool.Close()
	return err
}
