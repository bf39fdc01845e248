package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

type converseHarness struct {
	uc        *ConverseUseCase
	episodes  *episodeRepoFake
	citations *citationRepoFake
	chat      *chatModelFake
}

func newConverseHarness(chat *chatModelFake, retrieved []domain.RetrievedChunk) *converseHarness {
	episodes := &episodeRepoFake{episodes: map[string]domain.Episode{
		"ep1": {ID: "ep1", Title: "On Emancipation", PersonaName: "lincoln", Status: domain.EpisodeRecording},
	}}
	citations := &citationRepoFake{}
	analyzer := NewCitationAnalyzer(DefaultCitationPolicy())
	tracker := NewCitationTrackerUseCase(citations, episodes, &chunkRepoFake{}, &sourceRepoFake{}, analyzer)

	uc := NewConverseUseCase(
		episodes,
		&retrieverFake{chunks: retrieved},
		&personaProviderFake{persona: domain.Persona{Name: "lincoln", DisplayName: "Abraham Lincoln", SystemPrompt: "You are Abraham Lincoln."}},
		NewPromptBuilder(5),
		chat,
		analyzer,
		tracker,
	)
	uc.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return &converseHarness{uc: uc, episodes: episodes, citations: citations, chat: chat}
}

func biographyContext() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{{
		Chunk:             domain.Chunk{ID: "c1", DocumentID: "d1", Text: "Lincoln issued the Emancipation Proclamation in 1863."},
		SourceID:          "s1",
		SourceTitle:       "Lincoln Biography",
		SourceAuthor:      "David Herbert Donald",
		SourceReliability: 0.9,
		Similarity:        0.93,
	}}
}

func TestConversePersistsBeatAndCitations(t *testing.T) {
	chat := &chatModelFake{
		response: "I issued the proclamation in 1863 [Source: Lincoln Biography].",
		tokens:   42,
	}
	h := newConverseHarness(chat, biographyContext())

	answer, err := h.uc.Converse(context.Background(), domain.ConverseRequest{
		EpisodeID:   "ep1",
		Message:     "When did you free the slaves?",
		Annotations: domain.BeatAnnotations{"pinned": "true", "bogus": "dropped"},
	})
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}

	if answer.Text != chat.response || answer.TokenCount != 42 {
		t.Errorf("answer does not carry the model output: %+v", answer)
	}
	if len(answer.Citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(answer.Citations))
	}
	c := answer.Citations[0]
	if c.EpisodeID != "ep1" || c.BeatID == "" || c.ID == "" {
		t.Errorf("citation not attached to its beat: %+v", c)
	}
	if c.ValidationScore == nil {
		t.Error("citations are validated synchronously against the retrieved context")
	}
	if !answer.Coverage.MeetsRequirement {
		t.Errorf("one claim, one citation should meet coverage: %+v", answer.Coverage)
	}
	if answer.Context != nil {
		t.Error("context must be omitted unless requested")
	}
	if answer.RetrievedChunks != len(biographyContext()) {
		t.Errorf("answer should report the context size even without Context: got %d", answer.RetrievedChunks)
	}

	if len(h.episodes.beats) != 1 {
		t.Fatalf("expected 1 persisted beat, got %d", len(h.episodes.beats))
	}
	beat := h.episodes.beats[0]
	if beat.SequenceNumber != 1 || beat.TokenCount != 42 || beat.CitationCount != 1 {
		t.Errorf("beat bookkeeping off: %+v", beat)
	}
	if beat.UserMessage != "When did you free the slaves?" || beat.Response != chat.response {
		t.Errorf("beat does not record the exchange: %+v", beat)
	}
	if _, ok := beat.Annotations["bogus"]; ok {
		t.Error("unrecognized annotation keys must be dropped")
	}
	if beat.Annotations[domain.AnnotationPinned] != "true" {
		t.Error("recognized annotation lost")
	}
	if len(h.citations.citations) != 1 {
		t.Errorf("expected 1 stored citation, got %d", len(h.citations.citations))
	}
}

func TestConverseIncludeContext(t *testing.T) {
	chat := &chatModelFake{response: "Indeed.", tokens: 3}
	h := newConverseHarness(chat, biographyContext())

	answer, err := h.uc.Converse(context.Background(), domain.ConverseRequest{
		EpisodeID:      "ep1",
		Message:        "Tell me more.",
		IncludeContext: true,
	})
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if len(answer.Context) != 1 || answer.Context[0].SourceTitle != "Lincoln Biography" {
		t.Errorf("expected retrieved context echoed back, got %+v", answer.Context)
	}
}

func TestConverseRejectsEmptyMessage(t *testing.T) {
	h := newConverseHarness(&chatModelFake{}, nil)

	_, err := h.uc.Converse(context.Background(), domain.ConverseRequest{EpisodeID: "ep1", Message: "   "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestConverseUnknownEpisode(t *testing.T) {
	h := newConverseHarness(&chatModelFake{}, nil)

	_, err := h.uc.Converse(context.Background(), domain.ConverseRequest{EpisodeID: "nope", Message: "hi"})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConverseFeedsHistoryToPrompt(t *testing.T) {
	chat := &chatModelFake{response: "As I said.", tokens: 4}
	h := newConverseHarness(chat, nil)
	h.episodes.beats = []domain.Beat{
		{ID: "b0", EpisodeID: "ep1", SequenceNumber: 1, UserMessage: "Who are you?", Response: "Abraham Lincoln."},
	}

	if _, err := h.uc.Converse(context.Background(), domain.ConverseRequest{EpisodeID: "ep1", Message: "And your office?"}); err != nil {
		t.Fatalf("Converse: %v", err)
	}
	// system + prior user/assistant turn + current user message
	if len(chat.prompt) != 4 {
		t.Fatalf("expected 4 prompt messages, got %d", len(chat.prompt))
	}
	if chat.prompt[1].Role != domain.RoleUser || chat.prompt[1].Content != "Who are you?" {
		t.Errorf("history turn missing from prompt: %+v", chat.prompt[1])
	}
	if chat.prompt[2].Role != domain.RoleAssistant {
		t.Errorf("expected assistant turn, got %+v", chat.prompt[2])
	}
}

func TestConverseStreamDeltasThenDone(t *testing.T) {
	chat := &chatModelFake{events: []domain.StreamEvent{
		{Type: domain.StreamDelta, Content: "I issued the proclamation in 1863 "},
		{Type: domain.StreamDelta, Content: "[Source: Lincoln Biography]."},
		{Type: domain.StreamDone},
	}}
	h := newConverseHarness(chat, biographyContext())

	events, err := h.uc.ConverseStream(context.Background(), domain.ConverseRequest{EpisodeID: "ep1", Message: "When?"})
	if err != nil {
		t.Fatalf("ConverseStream: %v", err)
	}

	var collected []domain.StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	if len(collected) != 3 {
		t.Fatalf("expected 2 deltas and a done event, got %d events", len(collected))
	}
	last := collected[len(collected)-1]
	if last.Type != domain.StreamDone || last.Answer == nil {
		t.Fatalf("terminal event must be done with the answer: %+v", last)
	}
	wantText := "I issued the proclamation in 1863 [Source: Lincoln Biography]."
	if last.Answer.Text != wantText {
		t.Errorf("answer text %q does not match concatenated deltas", last.Answer.Text)
	}
	if last.Answer.TokenCount == 0 {
		t.Error("streamed answers get an approximate token count")
	}
	if len(h.episodes.beats) != 1 {
		t.Errorf("stream completion must persist the beat, got %d", len(h.episodes.beats))
	}
	if len(last.Answer.Citations) != 1 {
		t.Errorf("expected 1 citation on streamed answer, got %d", len(last.Answer.Citations))
	}
}

func TestConverseStreamForwardsError(t *testing.T) {
	chat := &chatModelFake{events: []domain.StreamEvent{
		{Type: domain.StreamDelta, Content: "partial"},
		{Type: domain.StreamError, Err: domain.ErrUpstream},
	}}
	h := newConverseHarness(chat, nil)

	events, err := h.uc.ConverseStream(context.Background(), domain.ConverseRequest{EpisodeID: "ep1", Message: "hi"})
	if err != nil {
		t.Fatalf("ConverseStream: %v", err)
	}

	var collected []domain.StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	last := collected[len(collected)-1]
	if last.Type != domain.StreamError || !domain.IsKind(last.Err, domain.ErrUpstream) {
		t.Fatalf("expected terminal error event, got %+v", last)
	}
	if len(h.episodes.beats) != 0 {
		t.Error("failed streams must not persist a beat")
	}
}
