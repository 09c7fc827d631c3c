package analyses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo keeps analyses in process memory. Used for dev runs and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Record
	byUser map[string][]string
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Record),
		byUser: make(map[string][]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[rec.ID]; exists {
		return ErrDuplicateID
	}
	r.byID[rec.ID] = rec
	r.byUser[rec.UserID] = append(r.byUser[rec.UserID], rec.ID)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[analysisID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	ids := r.byUser[userID]
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, r.byID[id])
	}
	r.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if offset >= len(records) {
		return []Record{}, nil
	}
	end := min(offset+limit, len(records))
	return records[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
