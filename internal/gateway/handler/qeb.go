package handler

import (
	"net/http"

	"protoreview/internal/gateway/repository/protocolstore"
	"protoreview/internal/qeb"
	"protoreview/internal/util/jsonutil"
)

// QEBHandler serves the queryable-eligibility view derived from a protocol's
// structured document.
type QEBHandler struct {
	protocols *protocolstore.Store
}

func NewQEBHandler(protocols *protocolstore.Store) *QEBHandler {
	return &QEBHandler{protocols: protocols}
}

type eligibilitySection struct {
	FunnelStages    []qeb.FunnelStage     `json:"funnelStages"`
	QueryableBlocks []qeb.QueryableBlock  `json:"queryableBlocks"`
	AtomicCriteria  []qeb.AtomicCriterion `json:"atomicCriteria"`
}

type qebStageView struct {
	Stage  qeb.FunnelStage `json:"stage"`
	Blocks []qebBlockView  `json:"blocks"`
}

type qebBlockView struct {
	Block          qeb.QueryableBlock    `json:"block"`
	Classification qeb.Classification    `json:"classification"`
	Criteria       []qeb.AtomicCriterion `json:"criteria"`
}

func (h *QEBHandler) View(w http.ResponseWriter, r *http.Request) {
	state, ok := h.protocols.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "protocol not found")
		return
	}
	if len(state.USDM) == 0 {
		writeError(w, http.StatusNotFound, "protocol has no document yet")
		return
	}
	var doc struct {
		Eligibility eligibilitySection `json:"eligibility"`
	}
	if err := jsonutil.UnmarshalFlex(state.USDM, &doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "decode document: "+err.Error())
		return
	}

	d := qeb.Derive(doc.Eligibility.FunnelStages, doc.Eligibility.QueryableBlocks, doc.Eligibility.AtomicCriteria)

	stages := make([]qebStageView, 0, len(d.OrderedStages))
	for _, stage := range d.OrderedStages {
		sv := qebStageView{Stage: stage, Blocks: []qebBlockView{}}
		for _, block := range d.BlocksByStage[stage.ID] {
			criteria := d.CriteriaByBlock[block.ID]
			sv.Blocks = append(sv.Blocks, qebBlockView{
				Block:          block,
				Classification: qeb.Classify(criteria),
				Criteria:       criteria,
			})
		}
		stages = append(stages, sv)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"protocolId":     state.ProtocolID,
		"stages":         stages,
		"buckets":        d.Buckets,
		"orphanBlocks":   d.OrphanBlocks,
		"orphanCriteria": d.OrphanCriteria,
	})
}
