package server

import (
	"net/http"

	"protoreview/internal/gateway/handler"
	"protoreview/internal/gateway/middleware"
)

func NewMux(
	protocolHandler *handler.ProtocolHandler,
	reviewHandler *handler.ReviewHandler,
	coverageHandler *handler.CoverageHandler,
	pipelineHandler *handler.PipelineHandler,
	qebHandler *handler.QEBHandler,
	authHandler *handler.AuthHandler,
	eventsHandler *handler.EventsHandler,
	healthHandler *handler.HealthHandler,
) http.Handler {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/auth/signup", authHandler.SignUp)
	mux.HandleFunc("POST /api/auth/signin", authHandler.SignIn)
	mux.HandleFunc("POST /api/auth/signout", authHandler.SignOut)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("POST /api/auth/password", authHandler.ChangePassword)

	// Protocols and documents
	mux.HandleFunc("GET /api/protocols", protocolHandler.List)
	mux.HandleFunc("POST /api/protocols", protocolHandler.Create)
	mux.HandleFunc("GET /api/protocols/{id}", protocolHandler.Get)
	mux.HandleFunc("PUT /api/protocols/{id}", protocolHandler.Update)
	mux.HandleFunc("GET /api/protocols/{id}/usdm", protocolHandler.GetUSDM)
	mux.HandleFunc("PUT /api/protocols/{id}/usdm", protocolHandler.ReplaceUSDM)
	mux.HandleFunc("GET /api/protocols/{id}/sources", protocolHandler.ListSources)
	mux.HandleFunc("PUT /api/protocols/{id}/sources/{name}", protocolHandler.UploadSource)
	mux.HandleFunc("GET /api/protocols/{id}/sources/{name}", protocolHandler.GetSource)

	// Field reviews
	mux.HandleFunc("PUT /api/protocols/{id}/reviews", reviewHandler.Upsert)
	mux.HandleFunc("GET /api/protocols/{id}/reviews", reviewHandler.List)
	mux.HandleFunc("GET /api/protocols/{id}/reviews/summary", reviewHandler.Summary)

	// Coverage
	mux.HandleFunc("POST /api/protocols/{id}/coverage/mark", coverageHandler.Mark)
	mux.HandleFunc("GET /api/protocols/{id}/coverage/stats", coverageHandler.Stats)
	mux.HandleFunc("GET /api/protocols/{id}/coverage/unrendered", coverageHandler.UnrenderedPaths)
	mux.HandleFunc("GET /api/protocols/{id}/coverage/unrendered-data", coverageHandler.UnrenderedData)

	// Eligibility view
	mux.HandleFunc("GET /api/protocols/{id}/qeb", qebHandler.View)

	// Pipeline progress
	mux.HandleFunc("POST /api/pipeline/reports", pipelineHandler.Ingest)
	mux.HandleFunc("GET /api/pipeline/runs", pipelineHandler.Runs)
	mux.HandleFunc("GET /api/pipeline/runs/{id}", pipelineHandler.Run)
	mux.HandleFunc("GET /api/pipeline/stages", pipelineHandler.Stages)

	// Event stream
	mux.HandleFunc("/ws/events", eventsHandler.HandleEventsWS)

	mux.HandleFunc("GET /healthz", healthHandler.Live)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	return middleware.CORS(mux)
}
