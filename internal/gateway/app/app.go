// Package app wires the gateway's stores, services and handlers into one
// runnable server.
package app

import (
	"context"
	"fmt"

	"protoreview/internal/authpw"
	"protoreview/internal/gateway/config"
	"protoreview/internal/gateway/handler"
	"protoreview/internal/gateway/server"
	covservice "protoreview/internal/gateway/service/coverage"
	"protoreview/internal/pipeline"
)

type App struct {
	server   *server.Server
	stores   *gatewayStores
	shutdown []func() error
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	stores, err := initStores(cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := initSessions(cfg)
	if err != nil {
		return nil, err
	}

	coverageSvc := covservice.New(stores.protocols)
	tracker := pipeline.NewTracker()
	authSvc := authpw.NewService(stores.reviewers)

	protocolHandler := handler.NewProtocolHandler(stores.protocols, stores.sources)
	reviewHandler := handler.NewReviewHandler(stores.protocols, stores.reviews)
	coverageHandler := handler.NewCoverageHandler(coverageSvc)
	pipelineHandler := handler.NewPipelineHandler(tracker)
	qebHandler := handler.NewQEBHandler(stores.protocols)
	authHandler := handler.NewAuthHandler(authSvc, sessions)
	eventsHandler := handler.NewEventsHandler(coverageSvc, tracker)
	healthHandler := handler.NewHealthHandler(sessions)

	mux := server.NewMux(
		protocolHandler,
		reviewHandler,
		coverageHandler,
		pipelineHandler,
		qebHandler,
		authHandler,
		eventsHandler,
		healthHandler,
	)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:   srv,
		stores:   stores,
		shutdown: []func() error{sessions.Close},
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.stores.persist()
	for _, fn := range a.shutdown {
		_ = fn()
	}
	return a.server.Shutdown(ctx)
}
