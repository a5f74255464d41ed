// internal/state/artifact_test.go
package state

import (
	"context"
	"errors"
	"testing"

	"github.com/user/waferchat/internal/types"
)

func TestArtifactStore(t *testing.T) {
	db := openTestDB(t)
	sessions := NewSessionStore(db)
	store := NewArtifactStore(db)
	ctx := context.Background()

	sid, _ := sessions.ResolveOrCreate(ctx, "k")
	art, err := store.Create(ctx, sid, "main.go", types.ArtifactCode, "package main")
	if err != nil {
		t.Fatal(err)
	}
	if art.ID == "" {
		t.Fatal("expected non-empty artifact ID")
	}

	got, err := store.Get(ctx, art.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "main.go" || got.Type != types.ArtifactCode || got.Content != "package main" || got.SessionID != sid {
		t.Errorf("unexpected artifact: %+v", got)
	}

	updated, err := store.Update(ctx, art.ID, "package main\n\nfunc main() {}")
	if err != nil {
		t.Fatal(err)
	}
	if updated.Content != "package main\n\nfunc main() {}" || updated.Title != "main.go" {
		t.Errorf("unexpected update: %+v", updated)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Error("expected updated_at >= created_at")
	}
}

func TestArtifactStoreNotFound(t *testing.T) {
	store := NewArtifactStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Update(ctx, "missing", "x"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestArtifactStoreList(t *testing.T) {
	store := NewArtifactStore(openTestDB(t))
	ctx := context.Background()

	a, _ := store.Create(ctx, "", "First", types.ArtifactMarkdown, "1")
	b, _ := store.Create(ctx, "", "Second", types.ArtifactMarkdown, "2")

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != b.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	if _, err := store.Update(ctx, a.ID, "1b"); err != nil {
		t.Fatal(err)
	}
	list, _ = store.List(ctx)
	if list[0].ID != a.ID {
		t.Errorf("expected updated artifact first, got %s", list[0].Title)
	}
}
