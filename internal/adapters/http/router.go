package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/ports"
	"github.com/simplomaticindia/they-might-say-platform/internal/observability/metrics"
)

// TrafficLimits bounds the request load one API instance accepts.
type TrafficLimits struct {
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	service   string
	ingest    ports.DocumentIngestor
	documents ports.DocumentReader
	sources   ports.SourceRepository
	episodes  ports.EpisodeRepository
	convo     ports.ConversationService
	reporter  ports.CitationReporter
	metrics   *metrics.HTTPServerMetrics
	limits    TrafficLimits
}

func NewRouter(
	service string,
	ingest ports.DocumentIngestor,
	documents ports.DocumentReader,
	sources ports.SourceRepository,
	episodes ports.EpisodeRepository,
	convo ports.ConversationService,
	reporter ports.CitationReporter,
	m *metrics.HTTPServerMetrics,
	limits TrafficLimits,
) *Router {
	return &Router{
		service:   service,
		ingest:    ingest,
		documents: documents,
		sources:   sources,
		episodes:  episodes,
		convo:     convo,
		reporter:  reporter,
		metrics:   m,
		limits:    limits,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/sources", rt.sourcesCollection)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/episodes", rt.createEpisode)
	mux.HandleFunc("/v1/episodes/", rt.episodeSubtree)
	mux.HandleFunc("/v1/converse", rt.converse)
	mux.HandleFunc("/v1/converse/stream", rt.converseStream)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.limits.MaxInFlight, 50*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.limits.RateLimitRPS, rt.limits.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
