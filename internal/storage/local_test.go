package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorePut(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	data := []byte("png bytes")
	if err := store.Put(ctx, "owner-1/tshirt/skull.png", data, "image/png"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(store.root, "owner-1", "tshirt", "skull.png"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("stored content = %q, want %q", got, data)
	}
}

func TestLocalStorePutOverwrites(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	if err := store.Put(ctx, "a/b.png", []byte("first"), "image/png"); err != nil {
		t.Fatalf("first Put() error = %v", err)
	}
	if err := store.Put(ctx, "a/b.png", []byte("second"), "image/png"); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(store.root, "a", "b.png"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("stored content = %q, want %q", got, "second")
	}
}

func TestLocalStoreRejectsUnsafePaths(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	tests := []string{
		"../outside.png",
		"a/../../outside.png",
		"/absolute.png",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			if err := store.Put(ctx, path, []byte("x"), "image/png"); err == nil {
				t.Errorf("Put(%q) succeeded, want error", path)
			}
		})
	}
}

func TestLocalStoreCancelledContext(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, "a/b.png", []byte("x"), "image/png"); err == nil {
		t.Error("Put() with cancelled context succeeded, want error")
	}
}
