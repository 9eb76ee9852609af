package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// StageState is the lifecycle of one stage within a run.
type StageState string

const (
	StagePending   StageState = "pending"
	StageRunning   StageState = "running"
	StageSucceeded StageState = "succeeded"
	StageFailed    StageState = "failed"
)

// Report is one status transition posted by the external pipeline.
type Report struct {
	RunID      string     `json:"runId"`
	ProtocolID string     `json:"protocolId"`
	Stage      string     `json:"stage"`
	State      StageState `json:"state"`
	Message    string     `json:"message,omitempty"`
	At         time.Time  `json:"at,omitempty"`
}

// StageStatus is the tracked status of one catalog stage within a run.
type StageStatus struct {
	Stage     StageDescriptor `json:"stage"`
	State     StageState      `json:"state"`
	Message   string          `json:"message,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

// RunStatus is the full per-run view served to the frontend.
type RunStatus struct {
	RunID      string        `json:"runId"`
	ProtocolID string        `json:"protocolId"`
	Stages     []StageStatus `json:"stages"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Event notifies subscribers that a run's status changed.
type Event struct {
	RunID      string     `json:"runId"`
	ProtocolID string     `json:"protocolId"`
	Stage      string     `json:"stage"`
	State      StageState `json:"state"`
}

// Tracker keeps per-run stage statuses in memory. Runs are display state, not
// durable data; a gateway restart simply waits for the pipeline's next report.
type Tracker struct {
	mu   sync.Mutex
	runs map[string]*runEntry
	subs map[int]chan Event
	next int
}

type runEntry struct {
	protocolID string
	states     map[string]StageStatus
	updatedAt  time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		runs: make(map[string]*runEntry),
		subs: make(map[int]chan Event),
	}
}

// Ingest validates and applies one report. Unknown stages and states are
// rejected so a misconfigured pipeline build cannot silently corrupt the
// display.
func (t *Tracker) Ingest(report Report) error {
	if t == nil {
		return fmt.Errorf("tracker is nil")
	}
	runID := strings.TrimSpace(report.RunID)
	if runID == "" {
		return fmt.Errorf("run_id is required")
	}
	stage, ok := StageByKey(strings.TrimSpace(report.Stage))
	if !ok {
		return fmt.Errorf("unknown stage %q", report.Stage)
	}
	switch report.State {
	case StagePending, StageRunning, StageSucceeded, StageFailed:
	default:
		return fmt.Errorf("unknown stage state %q", report.State)
	}
	at := report.At
	if at.IsZero() {
		at = time.Now()
	}

	t.mu.Lock()
	entry, ok := t.runs[runID]
	if !ok {
		entry = &runEntry{states: make(map[string]StageStatus)}
		t.runs[runID] = entry
	}
	if pid := strings.TrimSpace(report.ProtocolID); pid != "" {
		entry.protocolID = pid
	}
	entry.states[stage.Key] = StageStatus{
		Stage:     stage,
		State:     report.State,
		Message:   strings.TrimSpace(report.Message),
		UpdatedAt: at,
	}
	entry.updatedAt = at
	evt := Event{
		RunID:      runID,
		ProtocolID: entry.protocolID,
		Stage:      stage.Key,
		State:      report.State,
	}
	// Non-blocking sends, so fan-out can stay under the lock; this also keeps
	// sends ordered against unsubscribe-and-close.
	for _, ch := range t.subs {
		pushEvent(ch, evt)
	}
	t.mu.Unlock()
	return nil
}

// Run returns the status of one run with every catalog stage present; stages
// the pipeline has not reported yet show as pending.
func (t *Tracker) Run(runID string) (RunStatus, bool) {
	if t == nil {
		return RunStatus{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.runs[strings.TrimSpace(runID)]
	if !ok {
		return RunStatus{}, false
	}
	out := RunStatus{
		RunID:      strings.TrimSpace(runID),
		ProtocolID: entry.protocolID,
		Stages:     make([]StageStatus, 0, len(stageCatalog)),
		UpdatedAt:  entry.updatedAt,
	}
	for _, stage := range stageCatalog {
		if st, ok := entry.states[stage.Key]; ok {
			out.Stages = append(out.Stages, st)
			continue
		}
		out.Stages = append(out.Stages, StageStatus{Stage: stage, State: StagePending})
	}
	return out, true
}

// Runs lists tracked run IDs, newest update first.
func (t *Tracker) Runs() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.runs))
	for id := range t.runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := t.runs[ids[i]].updatedAt, t.runs[ids[j]].updatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Subscribe returns a channel of run-change events. The channel is dropped
// when ctx is done. Slow consumers lose oldest events rather than blocking
// ingest.
func (t *Tracker) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 32)
	if t == nil {
		close(ch)
		return ch
	}
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = ch
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.subs, id)
		close(ch)
		t.mu.Unlock()
	}()
	return ch
}

// pushEvent enqueues without blocking, evicting the oldest buffered event when
// the subscriber is behind.
func pushEvent(ch chan Event, evt Event) {
	select {
	case ch <- evt:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}
