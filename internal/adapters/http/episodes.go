package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

func (rt *Router) createEpisode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PersonaName string `json:"persona_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	now := time.Now().UTC()
	ep := domain.Episode{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		PersonaName: req.PersonaName,
		Status:      domain.EpisodeRecording,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rt.episodes.CreateEpisode(r.Context(), &ep); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ep)
}

// episodeSubtree serves /v1/episodes/{id}, /v1/episodes/{id}/citations and
// /v1/episodes/{id}/citations/validate.
func (rt *Router) episodeSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/episodes/"), "/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "episode id is required"})
		return
	}
	episodeID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		rt.getEpisode(w, r, episodeID)
	case len(parts) == 2 && parts[1] == "beats" && r.Method == http.MethodGet:
		rt.listBeats(w, r, episodeID)
	case len(parts) == 2 && parts[1] == "citations" && r.Method == http.MethodGet:
		rt.citationReport(w, r, episodeID)
	case len(parts) == 3 && parts[1] == "citations" && parts[2] == "validate" && r.Method == http.MethodPost:
		rt.validateCitations(w, r, episodeID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown episode resource"})
	}
}

func (rt *Router) getEpisode(w http.ResponseWriter, r *http.Request, episodeID string) {
	ep, err := rt.episodes.GetEpisode(r.Context(), episodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (rt *Router) listBeats(w http.ResponseWriter, r *http.Request, episodeID string) {
	if _, err := rt.episodes.GetEpisode(r.Context(), episodeID); err != nil {
		writeError(w, err)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	beats, err := rt.episodes.ListRecentBeats(r.Context(), episodeID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"beats": beats})
}

func (rt *Router) citationReport(w http.ResponseWriter, r *http.Request, episodeID string) {
	report, err := rt.reporter.EpisodeReport(r.Context(), episodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) validateCitations(w http.ResponseWriter, r *http.Request, episodeID string) {
	reports, err := rt.reporter.ValidateEpisode(r.Context(), episodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
