package httpadapter

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

func (rt *Router) sourcesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.createSource(w, r)
	case http.MethodGet:
		rt.listSources(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (rt *Router) createSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string  `json:"title"`
		Author      string  `json:"author"`
		Year        int     `json:"year"`
		Type        string  `json:"type"`
		Reliability float64 `json:"reliability"`
		Notes       string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Reliability < 0 || req.Reliability > 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reliability must be in [0,1]"})
		return
	}

	now := time.Now().UTC()
	src := domain.Source{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Author:      req.Author,
		Year:        req.Year,
		Type:        req.Type,
		Reliability: req.Reliability,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rt.sources.Create(r.Context(), &src); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (rt *Router) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := rt.sources.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Title < sources[j].Title })
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		r.FormValue("source_id"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.documents.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
