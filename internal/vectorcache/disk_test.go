package vectorcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func diskRecord(key string) *Record {
	return &Record{
		CacheKey: key,
		Meta: Meta{
			Provider: "remote", Model: "test-model",
			BuiltAt: time.Now().UTC(), ItemCount: 2, Dimensions: 2,
		},
		Items:   []ItemRef{{ID: "a#0", URI: "doc://x/1"}, {ID: "b", URI: "doc://x/2"}},
		Vectors: [][]float32{{1, 0}, {0, 1}},
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	store := NewDiskStore(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	rec := diskRecord("key-1")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok := store.Load(ctx, "remote", "test-model", "key-1")
	if !ok {
		t.Fatal("expected hit after save")
	}
	if got.CacheKey != "key-1" || len(got.Items) != 2 || len(got.Vectors) != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Items[0].URI != "doc://x/1" {
		t.Errorf("item uri = %q", got.Items[0].URI)
	}
}

func TestDiskStore_MissingIsMiss(t *testing.T) {
	store := NewDiskStore(t.TempDir(), zap.NewNop())
	if _, ok := store.Load(context.Background(), "remote", "test-model", "nope"); ok {
		t.Fatal("expected miss for absent record")
	}
}

func TestDiskStore_CorruptFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir, zap.NewNop())
	ctx := context.Background()

	rec := diskRecord("key-1")
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, fileName("remote", "test-model", "key-1"))
	if err := os.WriteFile(path, []byte("{definitely not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.Load(ctx, "remote", "test-model", "key-1"); ok {
		t.Fatal("corrupt file must be a miss, not an error")
	}
}

func TestDiskStore_KeyMismatchIsMiss(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir, zap.NewNop())
	ctx := context.Background()

	// A record written under one key is unreachable under another: the
	// filename carries the key prefix, so a model or catalog change simply
	// never finds the stale file.
	if err := store.Save(ctx, diskRecord("old-key")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := store.Load(ctx, "remote", "test-model", "new-key"); ok {
		t.Fatal("expected miss for changed key")
	}

	// A record whose stored key disagrees with the expected key is also a
	// miss even when the filename matches.
	bad := diskRecord("tampered")
	if err := store.Save(ctx, bad); err != nil {
		t.Fatalf("Save: %v", err)
	}
	badPath := filepath.Join(dir, fileName("remote", "test-model", "tampered"))
	goodPath := filepath.Join(dir, fileName("remote", "test-model", "expected"))
	if err := os.Rename(badPath, goodPath); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Load(ctx, "remote", "test-model", "expected"); ok {
		t.Fatal("stored key mismatch must be a miss")
	}
}

func TestDiskStore_SeparateFilesPerProviderModel(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir, zap.NewNop())
	ctx := context.Background()

	a := diskRecord("key-a")
	b := diskRecord("key-b")
	b.Meta.Provider = "local"
	b.Meta.Model = "other/model"

	if err := store.Save(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, b); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 cache files, got %d", len(entries))
	}
}
