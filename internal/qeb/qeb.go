// Package qeb derives the queryable-eligibility view shown on the review
// screen: funnel stages, queryable blocks and atomic criteria arrive from the
// extraction pipeline as three flat arrays and are joined here into lookup
// maps plus classification buckets.
package qeb

import "sort"

// FunnelStage is one step of the eligibility funnel.
type FunnelStage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// QueryableBlock groups atomic criteria under a funnel stage.
type QueryableBlock struct {
	ID      string `json:"id"`
	StageID string `json:"stageId"`
	Title   string `json:"title"`
}

// AtomicCriterion is a single eligibility criterion extracted from the
// protocol text.
type AtomicCriterion struct {
	ID        string `json:"id"`
	BlockID   string `json:"blockId"`
	Text      string `json:"text"`
	Queryable bool   `json:"queryable"`
}

// Classification of a block by how much of it can be answered from structured
// data.
type Classification string

const (
	ClassQueryable          Classification = "queryable"
	ClassPartiallyQueryable Classification = "partially_queryable"
	ClassNonQueryable       Classification = "non_queryable"
)

// Derived is the joined view over the three input arrays.
type Derived struct {
	StageByID     map[string]FunnelStage
	BlockByID     map[string]QueryableBlock
	CriterionByID map[string]AtomicCriterion

	// BlocksByStage and CriteriaByBlock preserve input order within each group.
	BlocksByStage   map[string][]QueryableBlock
	CriteriaByBlock map[string][]AtomicCriterion

	// Buckets groups block IDs by classification, sorted for stable output.
	Buckets map[Classification][]string

	// OrderedStages is the funnel sorted by Order, ties broken by ID.
	OrderedStages []FunnelStage

	// OrphanBlocks and OrphanCriteria reference a stage or block that does not
	// exist in the input; they are kept visible rather than dropped.
	OrphanBlocks   []string
	OrphanCriteria []string
}

// Derive joins stages, blocks and criteria. Later duplicates of an ID win,
// matching how the pipeline emits corrected rows.
func Derive(stages []FunnelStage, blocks []QueryableBlock, criteria []AtomicCriterion) *Derived {
	d := &Derived{
		StageByID:       make(map[string]FunnelStage, len(stages)),
		BlockByID:       make(map[string]QueryableBlock, len(blocks)),
		CriterionByID:   make(map[string]AtomicCriterion, len(criteria)),
		BlocksByStage:   make(map[string][]QueryableBlock),
		CriteriaByBlock: make(map[string][]AtomicCriterion),
		Buckets:         make(map[Classification][]string),
	}

	for _, s := range stages {
		d.StageByID[s.ID] = s
	}
	for _, b := range blocks {
		d.BlockByID[b.ID] = b
	}
	for _, c := range criteria {
		d.CriterionByID[c.ID] = c
	}

	// Group the deduped rows at each ID's first position, so a corrected
	// duplicate replaces the earlier row instead of appearing twice.
	seenBlocks := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		if _, ok := seenBlocks[b.ID]; ok {
			continue
		}
		seenBlocks[b.ID] = struct{}{}
		winner := d.BlockByID[b.ID]
		if _, ok := d.StageByID[winner.StageID]; !ok {
			d.OrphanBlocks = append(d.OrphanBlocks, winner.ID)
			continue
		}
		d.BlocksByStage[winner.StageID] = append(d.BlocksByStage[winner.StageID], winner)
	}
	seenCriteria := make(map[string]struct{}, len(criteria))
	for _, c := range criteria {
		if _, ok := seenCriteria[c.ID]; ok {
			continue
		}
		seenCriteria[c.ID] = struct{}{}
		winner := d.CriterionByID[c.ID]
		if _, ok := d.BlockByID[winner.BlockID]; !ok {
			d.OrphanCriteria = append(d.OrphanCriteria, winner.ID)
			continue
		}
		d.CriteriaByBlock[winner.BlockID] = append(d.CriteriaByBlock[winner.BlockID], winner)
	}

	for id := range d.BlockByID {
		cls := Classify(d.CriteriaByBlock[id])
		d.Buckets[cls] = append(d.Buckets[cls], id)
	}
	for cls := range d.Buckets {
		sort.Strings(d.Buckets[cls])
	}

	d.OrderedStages = make([]FunnelStage, 0, len(d.StageByID))
	for _, s := range d.StageByID {
		d.OrderedStages = append(d.OrderedStages, s)
	}
	sort.Slice(d.OrderedStages, func(i, j int) bool {
		a, b := d.OrderedStages[i], d.OrderedStages[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})

	return d
}

// Classify buckets a block by its criteria: all queryable, some, or none. A
// block with no attached criteria cannot be queried at all.
func Classify(criteria []AtomicCriterion) Classification {
	if len(criteria) == 0 {
		return ClassNonQueryable
	}
	queryable := 0
	for _, c := range criteria {
		if c.Queryable {
			queryable++
		}
	}
	switch queryable {
	case len(criteria):
		return ClassQueryable
	case 0:
		return ClassNonQueryable
	default:
		return ClassPartiallyQueryable
	}
}
