package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/deployworks/deployctl/pkg/state/backend"
)

func newTestBackend(t *testing.T) backend.Backend {
	t.Helper()
	b, err := NewBackend(map[string]string{"path": t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	return b
}

func TestType(t *testing.T) {
	b := newTestBackend(t)
	if b.Type() != "local" {
		t.Errorf("Type() = %q, want %q", b.Type(), "local")
	}
}

func TestWriteAndRead(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if err := b.Write(ctx, "switches/selections.json", strings.NewReader(`{"a":1}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reader, err := b.Read(ctx, "switches/selections.json")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(data, []byte(`{"a":1}`)) {
		t.Errorf("Read returned %q", data)
	}
}

func TestRead_NotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Read(context.Background(), "missing.json")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Read of missing path returned %v, want ErrNotFound", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if err := b.Write(ctx, "doomed.json", strings.NewReader("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := b.Delete(ctx, "doomed.json"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := b.Delete(ctx, "doomed.json"); err != nil {
		t.Errorf("Second delete should be a no-op, got %v", err)
	}

	if _, err := b.Read(ctx, "doomed.json"); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Read after delete returned %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	files := []string{"switches/a.json", "switches/b.json", "other/c.json"}
	for _, f := range files {
		if err := b.Write(ctx, f, strings.NewReader("x")); err != nil {
			t.Fatalf("Write %s failed: %v", f, err)
		}
	}

	paths, err := b.List(ctx, "switches")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("List returned %d paths, want 2: %v", len(paths), paths)
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, "switches/") {
			t.Errorf("List returned path outside prefix: %q", p)
		}
	}
}

func TestList_MissingPrefix(t *testing.T) {
	b := newTestBackend(t)

	paths, err := b.List(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("List of missing prefix returned %v", paths)
	}
}

func TestCreateFromRegistry(t *testing.T) {
	b, err := backend.Create(backend.Config{
		Type:     "local",
		Settings: map[string]string{"path": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Type() != "local" {
		t.Errorf("Type() = %q", b.Type())
	}
}
