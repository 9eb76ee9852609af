package handler

import (
	"net/http"

	"protoreview/internal/gateway/repository/protocolstore"
	"protoreview/internal/gateway/repository/review"
)

// ReviewHandler records per-field review decisions against protocol paths.
type ReviewHandler struct {
	protocols *protocolstore.Store
	reviews   *review.Store
}

func NewReviewHandler(protocols *protocolstore.Store, reviews *review.Store) *ReviewHandler {
	return &ReviewHandler{protocols: protocols, reviews: reviews}
}

func (h *ReviewHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path     string `json:"path"`
		Status   string `json:"status"`
		Comment  string `json:"comment"`
		Reviewer string `json:"reviewer"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if _, ok := h.protocols.Get(id); !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	saved, err := h.reviews.Upsert(review.FieldReview{
		ProtocolID: id,
		Path:       req.Path,
		Status:     req.Status,
		Comment:    req.Comment,
		Reviewer:   req.Reviewer,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.protocols.Get(id); !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": h.reviews.ListByProtocol(id)})
}

func (h *ReviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.protocols.Get(id); !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	writeJSON(w, http.StatusOK, h.reviews.Summarize(id))
}
