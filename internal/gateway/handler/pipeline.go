package handler

import (
	"net/http"

	"protoreview/internal/pipeline"
)

// PipelineHandler receives stage reports from extraction workers and serves
// run progress to the frontend.
type PipelineHandler struct {
	tracker *pipeline.Tracker
}

func NewPipelineHandler(tracker *pipeline.Tracker) *PipelineHandler {
	return &PipelineHandler{tracker: tracker}
}

func (h *PipelineHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var report pipeline.Report
	if !decodeBody(w, r, &report) {
		return
	}
	if err := h.tracker.Ingest(report); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *PipelineHandler) Runs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": h.tracker.Runs()})
}

func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	status, ok := h.tracker.Run(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *PipelineHandler) Stages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"stages": pipeline.Stages()})
}
