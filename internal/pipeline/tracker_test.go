package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestStages_OrderedCatalog(t *testing.T) {
	stages := Stages()
	if len(stages) != 12 {
		t.Fatalf("expected 12 stages, got %d", len(stages))
	}
	for i, s := range stages {
		if s.Order != i+1 {
			t.Errorf("stage %q out of order: order %d at index %d", s.Key, s.Order, i)
		}
	}
	if stages[0].Key != "ingest_source" || stages[11].Key != "publish_review" {
		t.Errorf("catalog endpoints wrong: %q .. %q", stages[0].Key, stages[11].Key)
	}
}

func TestIngest_TracksRun(t *testing.T) {
	tr := NewTracker()

	if err := tr.Ingest(Report{RunID: "run-1", ProtocolID: "prot-1", Stage: "ingest_source", State: StageSucceeded}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if err := tr.Ingest(Report{RunID: "run-1", Stage: "ocr_text", State: StageRunning, Message: "page 4 of 120"}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	run, ok := tr.Run("run-1")
	if !ok {
		t.Fatal("expected run-1 to be tracked")
	}
	if run.ProtocolID != "prot-1" {
		t.Errorf("protocol id not retained: %q", run.ProtocolID)
	}
	if len(run.Stages) != 12 {
		t.Fatalf("expected all catalog stages in view, got %d", len(run.Stages))
	}
	if run.Stages[0].State != StageSucceeded {
		t.Errorf("expected ingest_source succeeded, got %s", run.Stages[0].State)
	}
	if run.Stages[1].State != StageRunning || run.Stages[1].Message != "page 4 of 120" {
		t.Errorf("expected ocr_text running, got %+v", run.Stages[1])
	}
	if run.Stages[2].State != StagePending {
		t.Errorf("unreported stage must show pending, got %s", run.Stages[2].State)
	}
}

func TestIngest_RejectsUnknownStageAndState(t *testing.T) {
	tr := NewTracker()

	if err := tr.Ingest(Report{RunID: "r", Stage: "compile_kernel", State: StageRunning}); err == nil {
		t.Error("expected error for unknown stage")
	}
	if err := tr.Ingest(Report{RunID: "r", Stage: "ocr_text", State: "exploded"}); err == nil {
		t.Error("expected error for unknown state")
	}
	if err := tr.Ingest(Report{Stage: "ocr_text", State: StageRunning}); err == nil {
		t.Error("expected error for missing run id")
	}
	if _, ok := tr.Run("r"); ok {
		t.Error("rejected reports must not create runs")
	}
}

func TestRuns_NewestFirst(t *testing.T) {
	tr := NewTracker()
	base := time.Now()

	_ = tr.Ingest(Report{RunID: "old", Stage: "ocr_text", State: StageRunning, At: base.Add(-time.Hour)})
	_ = tr.Ingest(Report{RunID: "new", Stage: "ocr_text", State: StageRunning, At: base})

	ids := tr.Runs()
	if len(ids) != 2 || ids[0] != "new" || ids[1] != "old" {
		t.Fatalf("expected [new old], got %v", ids)
	}
}

func TestSubscribe_ReceivesEvents(t *testing.T) {
	tr := NewTracker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := tr.Subscribe(ctx)
	if err := tr.Ingest(Report{RunID: "run-9", Stage: "validate_usdm", State: StageFailed, Message: "dangling arm id"}); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.RunID != "run-9" || evt.Stage != "validate_usdm" || evt.State != StageFailed {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribe_SlowConsumerDropsOldest(t *testing.T) {
	tr := NewTracker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := tr.Subscribe(ctx)
	for i := 0; i < 100; i++ {
		state := StageRunning
		if i%2 == 0 {
			state = StageSucceeded
		}
		if err := tr.Ingest(Report{RunID: "run-burst", Stage: "ocr_text", State: state}); err != nil {
			t.Fatalf("ingest failed: %v", err)
		}
	}
	// Channel buffer is bounded; ingest never blocked, and events remain readable.
	if len(ch) == 0 || len(ch) > 32 {
		t.Fatalf("unexpected buffered event count %d", len(ch))
	}
}
