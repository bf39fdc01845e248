package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

func decodeConverseRequest(r *http.Request) (domain.ConverseRequest, error) {
	var req domain.ConverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.ConverseRequest{}, fmt.Errorf("invalid json: %w", domain.ErrInvalidInput)
	}
	return req, nil
}

func (rt *Router) converse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	req, err := decodeConverseRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	answer, err := rt.convo.Converse(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.recordConversation("batch", answer, time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

// sseEvent is the wire shape of one server-sent event. Err is flattened to
// a string because errors do not marshal.
type sseEvent struct {
	Type    domain.StreamEventType `json:"type"`
	Content string                 `json:"content,omitempty"`
	Answer  *domain.Answer         `json:"answer,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

func (rt *Router) converseStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	req, err := decodeConverseRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported by response writer"})
		return
	}

	start := time.Now()
	events, err := rt.convo.ConverseStream(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		out := sseEvent{Type: ev.Type, Content: ev.Content, Answer: ev.Answer}
		if ev.Err != nil {
			out.Error = ev.Err.Error()
			out.Content = ""
		}
		payload, err := json.Marshal(out)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()

		if ev.Type == domain.StreamDone && ev.Answer != nil {
			rt.recordConversation("stream", ev.Answer, time.Since(start))
		}
	}

	_, _ = io.WriteString(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (rt *Router) recordConversation(mode string, answer *domain.Answer, duration time.Duration) {
	if rt.metrics == nil || answer == nil {
		return
	}
	rt.metrics.RecordConversation(rt.service, mode, len(answer.Citations), answer.Coverage.CoveragePct, duration)
	rt.metrics.RecordRetrieval(rt.service, answer.RetrievedChunks)
	rt.metrics.RecordTokenUsage(rt.service, mode, answer.TokenCount)
}
