package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.FallbackOrderStore = (*FileFallbackStore)(nil)

type fallbackEntry struct {
	UserID string       `json:"userId"`
	Order  domain.Order `json:"order"`
}

// A FileFallbackStore keeps orders that could not reach the order API in a
// single JSON file. Entries are only ever appended.
type FileFallbackStore struct {
	mu   sync.Mutex
	path string
}

func NewFileFallbackStore(path string) *FileFallbackStore {
	return &FileFallbackStore{path: path}
}

func (s *FileFallbackStore) AppendOrder(
	ctx context.Context, userID string, o domain.Order,
) error {
	const op = "FileFallbackStore.AppendOrder"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	entries = append(entries, fallbackEntry{UserID: userID, Order: o})

	if err := s.write(entries); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *FileFallbackStore) ListOrders(
	ctx context.Context, userID string,
) ([]domain.Order, error) {
	const op = "FileFallbackStore.ListOrders"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders := []domain.Order{}
	for _, e := range entries {
		if e.UserID == userID {
			orders = append(orders, e.Order)
		}
	}
	return orders, nil
}

func (s *FileFallbackStore) read() ([]fallbackEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []fallbackEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// write replaces the file atomically.
func (s *FileFallbackStore) write(entries []fallbackEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
