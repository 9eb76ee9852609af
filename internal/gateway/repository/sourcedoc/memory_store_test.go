package sourcedoc

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	content := []byte("%PDF-1.7 ...")
	if err := s.Put(ctx, "prot-1", "/protocol.pdf", content); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "prot-1", "protocol.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, content) {
		t.Errorf("content mismatch: %q", got)
	}

	// Returned slice is a copy; mutating it must not touch the store.
	got[0] = 'X'
	again, _ := s.Get(ctx, "prot-1", "protocol.pdf")
	if again[0] == 'X' {
		t.Error("store handed out its internal buffer")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "prot-1", "nope.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListScopedToProtocol(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Put(ctx, "prot-1", "protocol.pdf", []byte("a"))
	_ = s.Put(ctx, "prot-1", "amendment-1.pdf", []byte("b"))
	_ = s.Put(ctx, "prot-2", "protocol.pdf", []byte("c"))

	got, err := s.List(ctx, "prot-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"amendment-1.pdf", "protocol.pdf"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMemoryStore_Validation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, "", "x.pdf", nil); err == nil {
		t.Error("expected error for missing protocol id")
	}
	if err := s.Put(ctx, "prot-1", "", nil); err == nil {
		t.Error("expected error for missing path")
	}
	if _, err := s.List(ctx, " "); err == nil {
		t.Error("expected error for blank protocol id")
	}
}
