package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "c-1", ChunkIndex: 0, Text: "a", Embedding: []float32{0.1, 0.2}},
		{ID: "c-2", ChunkIndex: 1, Text: "b", Embedding: []float32{0.3, 0.4}},
	}
}

func TestIndexChunksEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/passages":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/passages/points":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	doc := &domain.Document{ID: "doc-1", SourceID: "src-1"}

	if err := client.IndexChunks(context.Background(), doc, testChunks()); err != nil {
		t.Fatalf("first IndexChunks() error = %v", err)
	}
	if err := client.IndexChunks(context.Background(), doc, testChunks()); err != nil {
		t.Fatalf("second IndexChunks() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
}

func TestIndexChunksRequiresEmbeddings(t *testing.T) {
	client := New("http://unused", "passages")
	doc := &domain.Document{ID: "doc-1"}
	err := client.IndexChunks(context.Background(), doc, []domain.Chunk{{ID: "c-1", Text: "a"}})
	if err == nil {
		t.Fatalf("expected error for chunk without embedding")
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/passages" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	doc := &domain.Document{ID: "doc-1"}
	err := client.IndexChunks(context.Background(), doc, testChunks())
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got == "" || !strings.Contains(got, "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestSearchSendsThresholdAndSourceFilter(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/passages/points/search" {
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode search body: %v", err)
			}
			_, _ = w.Write([]byte(`{"result":[{"score":0.91,"payload":{"chunk_id":"c-1","document_id":"doc-1","source_id":"src-1"}}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	hits, err := client.Search(context.Background(), []float32{0.1, 0.2}, 10, domain.SearchFilter{
		MinSimilarity: 0.7,
		SourceIDs:     []string{"src-1"},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(hits) != 1 || hits[0].ChunkID != "c-1" || hits[0].Similarity != 0.91 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if captured["score_threshold"] != 0.7 {
		t.Fatalf("expected score_threshold in request, got %v", captured["score_threshold"])
	}
	if _, ok := captured["filter"]; !ok {
		t.Fatalf("expected source filter in request body")
	}
}

func TestDeleteByDocument(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "passages")
	if err := client.DeleteByDocument(context.Background(), "doc-1"); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	if path != "/collections/passages/points/delete" {
		t.Fatalf("unexpected path %q", path)
	}
}
