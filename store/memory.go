package store

import (
	"context"
	"sort"
	"sync"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	books   map[string]models.Book // key: title
	pending map[string]models.Book
	commits int
	closed  bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:   make(map[string]models.Book),
		pending: make(map[string]models.Book),
	}
}

// GetByTitle looks up a record, preferring staged writes.
func (m *MemoryStore) GetByTitle(_ context.Context, title string) (*models.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrClosed
	}
	if book, ok := m.pending[title]; ok {
		return &book, true, nil
	}
	if book, ok := m.books[title]; ok {
		return &book, true, nil
	}
	return nil, false, nil
}

// Upsert stages a copy of book.
func (m *MemoryStore) Upsert(_ context.Context, book *models.Book) error {
	if err := validate(book); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.pending[book.Title] = *book
	return nil
}

// Commit applies every staged write.
func (m *MemoryStore) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for title, book := range m.pending {
		m.books[title] = book
	}
	clear(m.pending)
	m.commits++
	return nil
}

// Rollback discards staged writes.
func (m *MemoryStore) Rollback(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.pending)
	return nil
}

// List returns committed records ordered by title.
func (m *MemoryStore) List(_ context.Context) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	out := make([]models.Book, 0, len(m.books))
	for _, book := range m.books {
		out = append(out, book)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// Len reports the number of committed records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books)
}

// Commits reports how many times Commit succeeded.
func (m *MemoryStore) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

// Close releases the store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
