// Package review persists per-field review state for extracted protocol
// documents. Each record ties a dot/bracket path inside the USDM document to a
// review decision, so the frontend can show what has been checked, by whom,
// and what is still open.
package review

import (
	"strings"
	"time"
)

// Review decision for one field.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusFlagged  = "flagged"
)

// FieldReview is one reviewer decision about one document path.
type FieldReview struct {
	ProtocolID string    `json:"protocol_id"`
	Path       string    `json:"path"`
	Status     string    `json:"status"`
	Comment    string    `json:"comment,omitempty"`
	Reviewer   string    `json:"reviewer,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary counts decisions per status for one protocol.
type Summary struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Flagged  int `json:"flagged"`
}

func normalizeReview(r FieldReview) FieldReview {
	r.ProtocolID = strings.TrimSpace(r.ProtocolID)
	r.Path = strings.TrimSpace(r.Path)
	r.Status = strings.TrimSpace(r.Status)
	r.Comment = strings.TrimSpace(r.Comment)
	r.Reviewer = strings.TrimSpace(r.Reviewer)
	switch r.Status {
	case StatusPending, StatusApproved, StatusFlagged:
	default:
		r.Status = StatusPending
	}
	return r
}

type rowScanner interface {
	Scan(dest ...any) error
}
