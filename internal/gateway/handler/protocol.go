package handler

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"protoreview/internal/gateway/repository/protocolstore"
	"protoreview/internal/gateway/repository/sourcedoc"
	"protoreview/internal/util/jsonutil"
)

// ProtocolHandler serves protocol records, their structured documents and the
// source files they were extracted from.
type ProtocolHandler struct {
	protocols *protocolstore.Store
	sources   sourcedoc.Store
}

func NewProtocolHandler(protocols *protocolstore.Store, sources sourcedoc.Store) *ProtocolHandler {
	return &ProtocolHandler{protocols: protocols, sources: sources}
}

type protocolSummary struct {
	ProtocolID string    `json:"protocolId"`
	Title      string    `json:"title"`
	Sponsor    string    `json:"sponsor,omitempty"`
	Phase      string    `json:"phase,omitempty"`
	Status     string    `json:"status"`
	Version    int       `json:"version"`
	HasUSDM    bool      `json:"hasUsdm"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func summarize(s protocolstore.State) protocolSummary {
	return protocolSummary{
		ProtocolID: s.ProtocolID,
		Title:      s.Title,
		Sponsor:    s.Sponsor,
		Phase:      s.Phase,
		Status:     s.Status,
		Version:    s.Version,
		HasUSDM:    len(s.USDM) > 0,
		UpdatedAt:  s.UpdatedAt,
	}
}

func (h *ProtocolHandler) List(w http.ResponseWriter, r *http.Request) {
	states := h.protocols.List()
	out := make([]protocolSummary, 0, len(states))
	for _, s := range states {
		out = append(out, summarize(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"protocols": out})
}

func (h *ProtocolHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProtocolID string `json:"protocolId"`
		Title      string `json:"title"`
		Sponsor    string `json:"sponsor"`
		Phase      string `json:"phase"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProtocolID) == "" {
		writeError(w, http.StatusBadRequest, "protocolId is required")
		return
	}
	if _, exists := h.protocols.Get(req.ProtocolID); exists {
		writeError(w, http.StatusConflict, "protocol already exists")
		return
	}
	h.protocols.Put(protocolstore.State{
		ProtocolID: req.ProtocolID,
		Title:      req.Title,
		Sponsor:    req.Sponsor,
		Phase:      req.Phase,
		Status:     protocolstore.StatusExtracting,
	})
	state, _ := h.protocols.Get(req.ProtocolID)
	writeJSON(w, http.StatusCreated, summarize(state))
}

func (h *ProtocolHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, ok := h.protocols.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	writeJSON(w, http.StatusOK, summarize(state))
}

func (h *ProtocolHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   *string `json:"title"`
		Sponsor *string `json:"sponsor"`
		Phase   *string `json:"phase"`
		Status  *string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != nil && !protocolstore.ValidStatus(*req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status "+*req.Status)
		return
	}
	state, ok := h.protocols.Update(r.PathValue("id"), func(s *protocolstore.State) {
		if req.Title != nil {
			s.Title = *req.Title
		}
		if req.Sponsor != nil {
			s.Sponsor = *req.Sponsor
		}
		if req.Phase != nil {
			s.Phase = *req.Phase
		}
		if req.Status != nil {
			s.Status = *req.Status
		}
	})
	if !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	writeJSON(w, http.StatusOK, summarize(state))
}

// GetUSDM returns the protocol's structured document verbatim.
func (h *ProtocolHandler) GetUSDM(w http.ResponseWriter, r *http.Request) {
	state, ok := h.protocols.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	if len(state.USDM) == 0 {
		writeError(w, http.StatusNotFound, "protocol has no document yet")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(state.USDM)
}

// ReplaceUSDM swaps in a new document version. The payload is normalized so
// string-wrapped pipeline output lands as plain JSON.
func (h *ProtocolHandler) ReplaceUSDM(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	norm, err := jsonutil.Normalize(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "document is not valid JSON: "+err.Error())
		return
	}
	state, ok := h.protocols.ReplaceUSDM(r.PathValue("id"), norm)
	if !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	writeJSON(w, http.StatusOK, summarize(state))
}

func (h *ProtocolHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.protocols.Get(id); !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	docs, err := h.protocols.ListSourceDocs(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": docs})
}

// UploadSource stores the raw file body under the name given in the URL and
// records it against the protocol.
func (h *ProtocolHandler) UploadSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := path.Base(strings.TrimSpace(r.PathValue("name")))
	if name == "" || name == "." || name == "/" {
		writeError(w, http.StatusBadRequest, "source name is required")
		return
	}
	if _, ok := h.protocols.Get(id); !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "source body is empty")
		return
	}
	if err := h.sources.Put(r.Context(), id, name, body); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.protocols.AddSourceDoc(protocolstore.SourceDoc{
		ProtocolID: id,
		RunID:      r.URL.Query().Get("runId"),
		Path:       name,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": name})
}

// GetSource redirects to a presigned URL when the backing store can mint one,
// and falls back to serving the bytes directly.
func (h *ProtocolHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.PathValue("name")
	if url, err := h.sources.GetURL(r.Context(), id, name); err == nil && url != "" {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}
	content, err := h.sources.Get(r.Context(), id, name)
	if errors.Is(err, sourcedoc.ErrNotFound) {
		writeError(w, http.StatusNotFound, "source document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(content)
}
