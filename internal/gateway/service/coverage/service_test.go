package coverage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"protoreview/internal/gateway/repository/protocolstore"
)

func newTestService(t *testing.T) (*Service, *protocolstore.Store) {
	t.Helper()
	store := protocolstore.New(filepath.Join(t.TempDir(), "protocols.json"))
	return New(store), store
}

func TestMarkRenderedTracksDocument(t *testing.T) {
	svc, store := newTestService(t)
	store.Put(protocolstore.State{ProtocolID: "p1"})
	if _, ok := store.ReplaceUSDM("p1", []byte(`{"a":{"b":1},"c":2}`)); !ok {
		t.Fatal("replace failed")
	}

	stats, err := svc.MarkRendered("p1", "a")
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if stats.Rendered != 2 || stats.Total != 3 {
		t.Fatalf("got %+v", stats)
	}

	paths, err := svc.UnrenderedPaths("p1")
	if err != nil {
		t.Fatalf("unrendered: %v", err)
	}
	if len(paths) != 1 || paths[0] != "c" {
		t.Fatalf("got %v", paths)
	}
}

func TestRebindOnNewDocumentVersion(t *testing.T) {
	svc, store := newTestService(t)
	store.Put(protocolstore.State{ProtocolID: "p1"})
	store.ReplaceUSDM("p1", []byte(`{"a":1}`))

	if _, err := svc.MarkRendered("p1", "a"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	stats, err := svc.Stats("p1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Percentage != 100 {
		t.Fatalf("got %+v", stats)
	}

	// A new document version resets coverage.
	store.ReplaceUSDM("p1", []byte(`{"a":1,"b":2}`))
	stats, err = svc.Stats("p1")
	if err != nil {
		t.Fatalf("stats after rebind: %v", err)
	}
	if stats.Rendered != 0 || stats.Total != 2 {
		t.Fatalf("expected reset coverage, got %+v", stats)
	}
}

func TestUnknownProtocol(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Stats("missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSubscribeReceivesMarkEvents(t *testing.T) {
	svc, store := newTestService(t)
	store.Put(protocolstore.State{ProtocolID: "p1"})
	store.ReplaceUSDM("p1", []byte(`{"a":1,"b":2}`))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := svc.Subscribe(ctx)

	if _, err := svc.MarkRendered("p1", "a"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.ProtocolID != "p1" || evt.Stats.Rendered != 1 {
			t.Fatalf("got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	// Re-marking the same path changes nothing and emits nothing.
	if _, err := svc.MarkRendered("p1", "a"); err != nil {
		t.Fatalf("mark again: %v", err)
	}
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
