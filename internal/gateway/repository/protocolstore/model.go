// Package protocolstore persists extracted protocol documents and their
// source-document records. Backed by Postgres when a DSN is configured,
// otherwise by a JSON file, which keeps local development free of
// infrastructure.
package protocolstore

import (
	"encoding/json"
	"strings"
	"time"
)

// Review lifecycle of a protocol document.
const (
	StatusExtracting = "extracting"
	StatusInReview   = "in_review"
	StatusApproved   = "approved"
)

// State is one protocol's stored snapshot: identity fields plus the extracted
// USDM document as raw JSON. Version increments whenever the USDM payload is
// replaced; coverage registries key off it to know when to rebind.
type State struct {
	ProtocolID string          `json:"protocol_id"`
	Title      string          `json:"title"`
	Sponsor    string          `json:"sponsor,omitempty"`
	Phase      string          `json:"phase,omitempty"`
	Status     string          `json:"status"`
	Version    int             `json:"version"`
	USDM       json.RawMessage `json:"usdm,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// SourceDocs is populated by the file backend only; Postgres keeps them in
	// their own table.
	SourceDocs []SourceDoc `json:"source_docs,omitempty"`
}

// SourceDoc records one uploaded source file (usually the protocol PDF) tied
// to the extraction run that consumed it.
type SourceDoc struct {
	ID         int       `json:"id"`
	ProtocolID string    `json:"protocol_id"`
	RunID      string    `json:"run_id"`
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidStatus reports whether status names a known review state.
func ValidStatus(status string) bool {
	switch status {
	case StatusExtracting, StatusInReview, StatusApproved:
		return true
	}
	return false
}

func normalizeState(state State) State {
	state.ProtocolID = strings.TrimSpace(state.ProtocolID)
	state.Title = strings.TrimSpace(state.Title)
	state.Sponsor = strings.TrimSpace(state.Sponsor)
	state.Phase = strings.TrimSpace(state.Phase)
	state.Status = strings.TrimSpace(state.Status)
	if state.Title == "" {
		state.Title = "Untitled protocol"
	}
	switch state.Status {
	case StatusExtracting, StatusInReview, StatusApproved:
	default:
		state.Status = StatusInReview
	}
	if state.Version < 1 {
		state.Version = 1
	}
	return state
}

type rowScanner interface {
	Scan(dest ...any) error
}
