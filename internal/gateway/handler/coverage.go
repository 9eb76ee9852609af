package handler

import (
	"net/http"
	"strings"

	covservice "protoreview/internal/gateway/service/coverage"
)

// CoverageHandler exposes the path-coverage registry for one protocol: which
// parts of the structured document the review UI has actually shown.
type CoverageHandler struct {
	coverage *covservice.Service
}

func NewCoverageHandler(coverage *covservice.Service) *CoverageHandler {
	return &CoverageHandler{coverage: coverage}
}

func coverageStatus(err error) int {
	if strings.Contains(err.Error(), "not found") {
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

// Mark records paths the frontend rendered and returns updated stats.
func (h *CoverageHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths []string `json:"paths"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	stats, err := h.coverage.MarkRendered(r.PathValue("id"), req.Paths...)
	if err != nil {
		writeError(w, coverageStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *CoverageHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.coverage.Stats(r.PathValue("id"))
	if err != nil {
		writeError(w, coverageStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *CoverageHandler) UnrenderedPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.coverage.UnrenderedPaths(r.PathValue("id"))
	if err != nil {
		writeError(w, coverageStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

// UnrenderedData returns the top-level document sections that still contain
// unrendered values.
func (h *CoverageHandler) UnrenderedData(w http.ResponseWriter, r *http.Request) {
	data, err := h.coverage.UnrenderedData(r.PathValue("id"))
	if err != nil {
		writeError(w, coverageStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}
