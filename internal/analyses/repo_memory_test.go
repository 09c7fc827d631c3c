package analyses

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepoListsNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a-1", "a-2", "a-3"} {
		rec := Record{ID: id, UserID: "user-1", TaskID: "bone-age", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := repo.Create(ctx, Record{ID: "b-1", UserID: "user-2", CreatedAt: base}); err != nil {
		t.Fatalf("create other user: %v", err)
	}

	got, err := repo.ListByUser(ctx, "user-1", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a-3" || got[1].ID != "a-2" {
		t.Fatalf("expected [a-3 a-2], got %+v", got)
	}

	got, _ = repo.ListByUser(ctx, "user-1", 2, 2)
	if len(got) != 1 || got[0].ID != "a-1" {
		t.Fatalf("expected [a-1] on second page, got %+v", got)
	}
	got, _ = repo.ListByUser(ctx, "user-1", 0, 5)
	if len(got) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(got))
	}
}

func TestMemoryRepoRecordsAreWriteOnce(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	rec := Record{ID: "a-1", UserID: "user-1", ResultText: "first"}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec.ResultText = "second"
	if err := repo.Create(ctx, rec); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	stored, err := repo.GetByID(ctx, "a-1")
	if err != nil || stored.ResultText != "first" {
		t.Fatalf("expected original record, got %+v (%v)", stored, err)
	}
	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
