package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	covservice "protoreview/internal/gateway/service/coverage"
	"protoreview/internal/pipeline"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// EventsHandler streams coverage and pipeline updates to the frontend over
// one websocket.
type EventsHandler struct {
	coverage *covservice.Service
	tracker  *pipeline.Tracker
}

func NewEventsHandler(coverage *covservice.Service, tracker *pipeline.Tracker) *EventsHandler {
	return &EventsHandler{coverage: coverage, tracker: tracker}
}

type eventsWSInbound struct {
	Type string `json:"type"`
}

type eventsWSOutbound struct {
	Type       string            `json:"type"`
	ProtocolID string            `json:"protocolId,omitempty"`
	Coverage   *covservice.Event `json:"coverage,omitempty"`
	Pipeline   *pipeline.Event   `json:"pipeline,omitempty"`
	Message    string            `json:"message,omitempty"`
}

func (h *EventsHandler) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	// Optional filter: only forward events for one protocol.
	protocolID := strings.TrimSpace(r.URL.Query().Get("protocol_id"))

	conn, err := eventsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		log.Printf("events ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	writeCh := make(chan eventsWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(eventsWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	coverageCh := h.coverage.Subscribe(ctx)
	pipelineCh := h.tracker.Subscribe(ctx)

	pushEventsWS(writeCh, eventsWSOutbound{Type: "subscribed", ProtocolID: protocolID})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-coverageCh:
				if !ok {
					return
				}
				if protocolID != "" && evt.ProtocolID != protocolID {
					continue
				}
				e := evt
				pushEventsWS(writeCh, eventsWSOutbound{
					Type:       "coverage",
					ProtocolID: evt.ProtocolID,
					Coverage:   &e,
				})
			case evt, ok := <-pipelineCh:
				if !ok {
					return
				}
				if protocolID != "" && evt.ProtocolID != protocolID {
					continue
				}
				e := evt
				pushEventsWS(writeCh, eventsWSOutbound{
					Type:       "pipeline",
					ProtocolID: evt.ProtocolID,
					Pipeline:   &e,
				})
			}
		}
	}()

	for {
		var in eventsWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushEventsWS(writeCh, eventsWSOutbound{Type: "pong"})
		default:
			pushEventsWS(writeCh, eventsWSOutbound{
				Type:    "error",
				Message: "unknown message type",
			})
		}
	}
}

// pushEventsWS drops the oldest queued message instead of blocking the
// producer on a slow client.
func pushEventsWS(ch chan eventsWSOutbound, out eventsWSOutbound) {
	select {
	case ch <- out:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- out:
	default:
	}
}
