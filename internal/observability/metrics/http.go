package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	conversationsTotal *prometheus.CounterVec
	conversationTime   *prometheus.HistogramVec
	retrievalHitTotal  *prometheus.CounterVec
	noContextTotal     *prometheus.CounterVec
	retrievedChunks    *prometheus.HistogramVec
	citationsPerAnswer *prometheus.HistogramVec
	coveragePct        *prometheus.HistogramVec
	coverageUnmetTotal *prometheus.CounterVec
	llmTokensTotal     *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tms",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tms",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tms",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	conversationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tms",
			Subsystem: "conversation",
			Name:      "exchanges_total",
			Help:      "Total completed conversational exchanges by mode.",
		},
		[]string{"service", "mode"},
	)
	conversationTime := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tms",
			Subsystem: "conversation",
			Name:      "exchange_duration_seconds",
			Help:      "End-to-end duration of one exchange in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"service", "mode"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tms",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total retrievals with at least one matching chunk.",
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tms",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total retrievals without matching chunks.",
		},
		[]string{"service"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tms",
			Subsystem: "retrieval",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	citationsPerAnswer := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tms",
			Subsystem: "citation",
			Name:      "per_answer",
			Help:      "Distribution of extracted citations per answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	coveragePct := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tms",
			Subsystem: "citation",
			Name:      "coverage_pct",
			Help:      "Distribution of citation coverage per answer.",
			Buckets:   []float64{0, 25, 50, 75, 90, 100},
		},
		[]string{"service"},
	)
	coverageUnmetTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tms",
			Subsystem: "citation",
			Name:      "coverage_unmet_total",
			Help:      "Total answers below the coverage requirement.",
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tms",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Completion token usage by conversation mode.",
		},
		[]string{"service", "mode"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		conversationsTotal,
		conversationTime,
		retrievalHitTotal,
		noContextTotal,
		retrievedChunks,
		citationsPerAnswer,
		coveragePct,
		coverageUnmetTotal,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		conversationsTotal: conversationsTotal,
		conversationTime:   conversationTime,
		retrievalHitTotal:  retrievalHitTotal,
		noContextTotal:     noContextTotal,
		retrievedChunks:    retrievedChunks,
		citationsPerAnswer: citationsPerAnswer,
		coveragePct:        coveragePct,
		coverageUnmetTotal: coverageUnmetTotal,
		llmTokensTotal:     llmTokensTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/episodes/"):
		rest := strings.TrimPrefix(path, "/v1/episodes/")
		if idx := strings.Index(rest, "/"); idx >= 0 {
			return "/v1/episodes/{episode_id}/" + rest[idx+1:]
		}
		return "/v1/episodes/{episode_id}"
	default:
		return path
	}
}

// RecordConversation observes one finished exchange: citations, coverage
// and wall time, labelled by batch/stream mode.
func (m *HTTPServerMetrics) RecordConversation(service, mode string, citations int, coveragePct float64, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.conversationsTotal.WithLabelValues(service, mode).Inc()
	m.conversationTime.WithLabelValues(service, mode).Observe(duration.Seconds())
	m.citationsPerAnswer.WithLabelValues(service).Observe(float64(citations))
	m.coveragePct.WithLabelValues(service).Observe(coveragePct)
	if coveragePct < 90 {
		m.coverageUnmetTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, chunkCount int) {
	m.retrievedChunks.WithLabelValues(service).Observe(float64(chunkCount))
	if chunkCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
		return
	}
	m.noContextTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, mode string, completionTokens int) {
	if completionTokens <= 0 {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	m.llmTokensTotal.WithLabelValues(service, mode).Add(float64(completionTokens))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
