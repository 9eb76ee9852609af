// Package coverage (service) binds one path-coverage registry to each
// protocol's current document version and fans change events out to
// subscribers such as the websocket handler.
package coverage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"protoreview/internal/coverage"
	"protoreview/internal/gateway/repository/protocolstore"
	"protoreview/internal/util/jsonutil"
)

// Event announces that a protocol's coverage changed.
type Event struct {
	ProtocolID string         `json:"protocolId"`
	Stats      coverage.Stats `json:"stats"`
}

type entry struct {
	version  int
	registry *coverage.Registry
}

// Service resolves registries lazily from the protocol store and rebinds them
// whenever the stored document version moves.
type Service struct {
	protocols *protocolstore.Store

	mu      sync.Mutex
	entries map[string]*entry

	// subMu is separate so registry notifications can fan out while mu is
	// held during a rebind.
	subMu sync.Mutex
	subs  map[int]chan Event
	next  int
}

func New(protocols *protocolstore.Store) *Service {
	return &Service{
		protocols: protocols,
		entries:   make(map[string]*entry),
		subs:      make(map[int]chan Event),
	}
}

// registryFor returns the registry bound to the protocol's current document,
// creating or rebinding as needed.
func (s *Service) registryFor(protocolID string) (*coverage.Registry, error) {
	id := strings.TrimSpace(protocolID)
	if id == "" {
		return nil, fmt.Errorf("protocol_id is required")
	}
	state, ok := s.protocols.Get(id)
	if !ok {
		return nil, fmt.Errorf("protocol %s not found", id)
	}

	var document any
	if len(state.USDM) > 0 {
		if err := jsonutil.UnmarshalFlex(state.USDM, &document); err != nil {
			return nil, fmt.Errorf("decode usdm for %s: %w", id, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		if e.version == state.Version {
			return e.registry, nil
		}
		if err := e.registry.Rebind(document); err != nil {
			return nil, err
		}
		e.version = state.Version
		return e.registry, nil
	}

	reg, err := coverage.New(document)
	if err != nil {
		return nil, err
	}
	reg.Subscribe(func() {
		s.emit(Event{ProtocolID: id, Stats: reg.Stats()})
	})
	s.entries[id] = &entry{version: state.Version, registry: reg}
	return reg, nil
}

// MarkRendered records displayed paths and returns the resulting stats.
func (s *Service) MarkRendered(protocolID string, paths ...string) (coverage.Stats, error) {
	reg, err := s.registryFor(protocolID)
	if err != nil {
		return coverage.Stats{}, err
	}
	reg.MarkRendered(paths...)
	return reg.Stats(), nil
}

func (s *Service) Stats(protocolID string) (coverage.Stats, error) {
	reg, err := s.registryFor(protocolID)
	if err != nil {
		return coverage.Stats{}, err
	}
	return reg.Stats(), nil
}

func (s *Service) UnrenderedPaths(protocolID string) ([]string, error) {
	reg, err := s.registryFor(protocolID)
	if err != nil {
		return nil, err
	}
	return reg.UnrenderedPaths(), nil
}

func (s *Service) UnrenderedData(protocolID string) (map[string]any, error) {
	reg, err := s.registryFor(protocolID)
	if err != nil {
		return nil, err
	}
	return reg.UnrenderedData(), nil
}

// Subscribe returns coverage-change events until ctx is done. Slow consumers
// lose oldest events rather than blocking the marking path.
func (s *Service) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 32)
	s.subMu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, id)
		close(ch)
		s.subMu.Unlock()
	}()
	return ch
}

func (s *Service) emit(evt Event) {
	s.subMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
			continue
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
	s.subMu.Unlock()
}
