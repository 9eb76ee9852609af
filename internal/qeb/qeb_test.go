package qeb

import (
	"reflect"
	"testing"
)

func fixture() ([]FunnelStage, []QueryableBlock, []AtomicCriterion) {
	stages := []FunnelStage{
		{ID: "s2", Name: "Labs", Order: 2},
		{ID: "s1", Name: "Demographics", Order: 1},
	}
	blocks := []QueryableBlock{
		{ID: "b1", StageID: "s1", Title: "Age"},
		{ID: "b2", StageID: "s1", Title: "Consent"},
		{ID: "b3", StageID: "s2", Title: "Hemoglobin"},
		{ID: "b4", StageID: "missing", Title: "Dangling"},
	}
	criteria := []AtomicCriterion{
		{ID: "c1", BlockID: "b1", Text: "age >= 18", Queryable: true},
		{ID: "c2", BlockID: "b1", Text: "age <= 75", Queryable: true},
		{ID: "c3", BlockID: "b2", Text: "informed consent on file", Queryable: false},
		{ID: "c4", BlockID: "b3", Text: "Hgb >= 10 g/dL", Queryable: true},
		{ID: "c5", BlockID: "b3", Text: "no transfusion in 30 days", Queryable: false},
		{ID: "c6", BlockID: "missing", Text: "dangling", Queryable: true},
	}
	return stages, blocks, criteria
}

func TestDerive_LookupMaps(t *testing.T) {
	stages, blocks, criteria := fixture()
	d := Derive(stages, blocks, criteria)

	if len(d.StageByID) != 2 || len(d.BlockByID) != 4 || len(d.CriterionByID) != 6 {
		t.Fatalf("lookup map sizes wrong: %d/%d/%d", len(d.StageByID), len(d.BlockByID), len(d.CriterionByID))
	}
	if d.BlockByID["b3"].Title != "Hemoglobin" {
		t.Errorf("block lookup broken: %+v", d.BlockByID["b3"])
	}
	got := d.BlocksByStage["s1"]
	if len(got) != 2 || got[0].ID != "b1" || got[1].ID != "b2" {
		t.Errorf("expected input order within stage, got %+v", got)
	}
}

func TestDerive_ClassificationBuckets(t *testing.T) {
	stages, blocks, criteria := fixture()
	d := Derive(stages, blocks, criteria)

	want := map[Classification][]string{
		ClassQueryable:          {"b1"},
		ClassPartiallyQueryable: {"b3"},
		ClassNonQueryable:       {"b2", "b4"},
	}
	if !reflect.DeepEqual(d.Buckets, want) {
		t.Fatalf("buckets mismatch:\n got %v\nwant %v", d.Buckets, want)
	}
}

func TestDerive_OrderedStagesAndOrphans(t *testing.T) {
	stages, blocks, criteria := fixture()
	d := Derive(stages, blocks, criteria)

	if len(d.OrderedStages) != 2 || d.OrderedStages[0].ID != "s1" || d.OrderedStages[1].ID != "s2" {
		t.Fatalf("stage ordering wrong: %+v", d.OrderedStages)
	}
	if !reflect.DeepEqual(d.OrphanBlocks, []string{"b4"}) {
		t.Errorf("expected orphan block b4, got %v", d.OrphanBlocks)
	}
	if !reflect.DeepEqual(d.OrphanCriteria, []string{"c6"}) {
		t.Errorf("expected orphan criterion c6, got %v", d.OrphanCriteria)
	}
}

func TestDerive_DuplicateIDsLastWins(t *testing.T) {
	stages := []FunnelStage{{ID: "s1", Name: "old", Order: 1}, {ID: "s1", Name: "new", Order: 1}}
	d := Derive(stages, nil, nil)
	if d.StageByID["s1"].Name != "new" {
		t.Fatalf("expected later duplicate to win, got %+v", d.StageByID["s1"])
	}
}

func TestDerive_DuplicateRowsGroupOnce(t *testing.T) {
	stages := []FunnelStage{
		{ID: "s1", Name: "Demographics", Order: 1},
		{ID: "s2", Name: "Labs", Order: 2},
	}
	blocks := []QueryableBlock{
		{ID: "b1", StageID: "s1", Title: "Age (draft)"},
		{ID: "b2", StageID: "s1", Title: "Consent"},
		{ID: "b1", StageID: "s2", Title: "Age (corrected)"},
	}
	criteria := []AtomicCriterion{
		{ID: "c1", BlockID: "b1", Text: "age >= 18", Queryable: false},
		{ID: "c1", BlockID: "b1", Text: "age >= 18", Queryable: true},
	}
	d := Derive(stages, blocks, criteria)

	// The corrected b1 moved to s2; the draft row must not linger under s1.
	if got := d.BlocksByStage["s1"]; len(got) != 1 || got[0].ID != "b2" {
		t.Fatalf("stale duplicate left under s1: %+v", got)
	}
	got := d.BlocksByStage["s2"]
	if len(got) != 1 || got[0].Title != "Age (corrected)" {
		t.Fatalf("expected single corrected block under s2, got %+v", got)
	}
	crits := d.CriteriaByBlock["b1"]
	if len(crits) != 1 || !crits[0].Queryable {
		t.Fatalf("expected single corrected criterion, got %+v", crits)
	}
	if !reflect.DeepEqual(d.Buckets[ClassQueryable], []string{"b1"}) {
		t.Fatalf("classification should use the corrected criterion, got %v", d.Buckets)
	}
}

func TestDerive_EmptyInputs(t *testing.T) {
	d := Derive(nil, nil, nil)
	if len(d.StageByID) != 0 || len(d.Buckets) != 0 || len(d.OrderedStages) != 0 {
		t.Fatalf("expected empty derived view, got %+v", d)
	}
}
