package protocolstore

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func fileStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "protocols.json"))
}

func TestPutGet_Normalizes(t *testing.T) {
	s := fileStore(t)

	s.Put(State{ProtocolID: "  prot-1  ", Sponsor: " Acme ", Status: "bogus"})
	got, ok := s.Get("prot-1")
	if !ok {
		t.Fatal("expected protocol to exist")
	}
	if got.Title != "Untitled protocol" {
		t.Errorf("expected default title, got %q", got.Title)
	}
	if got.Status != StatusInReview {
		t.Errorf("unknown status must fall back to in_review, got %q", got.Status)
	}
	if got.Version != 1 {
		t.Errorf("expected version 1, got %d", got.Version)
	}
	if got.Sponsor != "Acme" {
		t.Errorf("expected trimmed sponsor, got %q", got.Sponsor)
	}
}

func TestReplaceUSDM_BumpsVersion(t *testing.T) {
	s := fileStore(t)
	s.Put(State{ProtocolID: "prot-1", Title: "TRIAL-001"})

	usdm := []byte(`{"study":{"name":"TRIAL-001"}}`)
	got, ok := s.ReplaceUSDM("prot-1", usdm)
	if !ok {
		t.Fatal("replace failed")
	}
	if got.Version != 2 {
		t.Errorf("expected version bump to 2, got %d", got.Version)
	}
	var decoded map[string]any
	if err := json.Unmarshal(got.USDM, &decoded); err != nil {
		t.Fatalf("stored usdm not valid json: %v", err)
	}

	if _, ok := s.ReplaceUSDM("missing", usdm); ok {
		t.Error("replace on unknown protocol must fail")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocols.json")
	s := New(path)
	s.Put(State{ProtocolID: "prot-1", Title: "TRIAL-001", Phase: "III"})
	s.Put(State{ProtocolID: "prot-2", Title: "TRIAL-002"})
	s.Save()

	reloaded := New(path)
	got, ok := reloaded.Get("prot-1")
	if !ok || got.Phase != "III" {
		t.Fatalf("expected persisted state, got %+v ok=%v", got, ok)
	}
	if len(reloaded.List()) != 2 {
		t.Errorf("expected 2 protocols after reload, got %d", len(reloaded.List()))
	}
}

func TestSourceDocs_DedupAndOrder(t *testing.T) {
	s := fileStore(t)
	s.Put(State{ProtocolID: "prot-1"})

	docs := []SourceDoc{
		{ProtocolID: "prot-1", RunID: "run-1", Path: "protocol.pdf"},
		{ProtocolID: "prot-1", RunID: "run-1", Path: "protocol.pdf"}, // duplicate
		{ProtocolID: "prot-1", RunID: "run-2", Path: "amendment.pdf"},
	}
	for _, d := range docs {
		if err := s.AddSourceDoc(d); err != nil {
			t.Fatalf("add source doc: %v", err)
		}
	}

	got, err := s.ListSourceDocs("prot-1")
	if err != nil {
		t.Fatalf("list source docs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected duplicate collapsed, got %d docs", len(got))
	}
	if got[0].Path != "amendment.pdf" {
		t.Errorf("expected newest first, got %+v", got)
	}
}

func TestNilStoreIsInert(t *testing.T) {
	var s *Store
	s.Put(State{ProtocolID: "x"})
	if _, ok := s.Get("x"); ok {
		t.Error("nil store must not return state")
	}
	if got := s.List(); got != nil {
		t.Errorf("nil store list: %v", got)
	}
	if err := s.AddSourceDoc(SourceDoc{ProtocolID: "x"}); err != nil {
		t.Errorf("nil store add: %v", err)
	}
}
