package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
	"github.com/simplomaticindia/they-might-say-platform/internal/core/ports"
)

// ContextRetriever narrows RetrieveContextUseCase to what conversation needs.
type ContextRetriever interface {
	Retrieve(ctx context.Context, queryText string, maxChunks int, minSimilarity float64, sourceIDs []string) ([]domain.RetrievedChunk, error)
}

// ConverseUseCase runs one conversational exchange: retrieve supporting
// context, assemble the persona prompt, generate, extract and validate
// citations, then persist the beat.
type ConverseUseCase struct {
	episodes  ports.EpisodeRepository
	retriever ContextRetriever
	personas  ports.PersonaProvider
	prompts   *PromptBuilder
	chat      ports.ChatModel
	analyzer  *CitationAnalyzer
	tracker   *CitationTrackerUseCase

	now func() time.Time
}

func NewConverseUseCase(
	episodes ports.EpisodeRepository,
	retriever ContextRetriever,
	personas ports.PersonaProvider,
	prompts *PromptBuilder,
	chat ports.ChatModel,
	analyzer *CitationAnalyzer,
	tracker *CitationTrackerUseCase,
) *ConverseUseCase {
	return &ConverseUseCase{
		episodes:  episodes,
		retriever: retriever,
		personas:  personas,
		prompts:   prompts,
		chat:      chat,
		analyzer:  analyzer,
		tracker:   tracker,
		now:       time.Now,
	}
}

type exchange struct {
	episode *domain.Episode
	persona domain.Persona
	context []domain.RetrievedChunk
	prompt  []domain.Message
	started time.Time
}

// Converse answers one message synchronously.
func (uc *ConverseUseCase) Converse(ctx context.Context, req domain.ConverseRequest) (*domain.Answer, error) {
	ex, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	text, tokens, err := uc.chat.Complete(ctx, ex.prompt)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	return uc.finish(ctx, req, ex, text, tokens)
}

// ConverseStream answers one message as a stream of delta events closed by a
// single done event carrying the finished Answer, or one error event. The
// returned channel is closed when the stream ends or ctx is cancelled.
func (uc *ConverseUseCase) ConverseStream(ctx context.Context, req domain.ConverseRequest) (<-chan domain.StreamEvent, error) {
	ex, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	upstream, err := uc.chat.Stream(ctx, ex.prompt)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	out := make(chan domain.StreamEvent, 1)
	go func() {
		defer close(out)

		send := func(ev domain.StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var text strings.Builder
		tokens := 0
		for ev := range upstream {
			switch ev.Type {
			case domain.StreamDelta:
				text.WriteString(ev.Content)
				if !send(ev) {
					return
				}
			case domain.StreamDone:
				if ev.Answer != nil {
					tokens = ev.Answer.TokenCount
				}
				if tokens == 0 {
					// Streaming responses carry no usage block.
					tokens = approximateTokens(text.String())
				}
				answer, err := uc.finish(ctx, req, ex, text.String(), tokens)
				if err != nil {
					send(domain.StreamEvent{Type: domain.StreamError, Err: err, Content: err.Error()})
					return
				}
				send(domain.StreamEvent{Type: domain.StreamDone, Answer: answer})
				return
			case domain.StreamError:
				send(ev)
				return
			}
		}
	}()
	return out, nil
}

// prepare resolves the episode, loads recent history, retrieves context and
// builds the prompt.
func (uc *ConverseUseCase) prepare(ctx context.Context, req domain.ConverseRequest) (*exchange, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "converse", errors.New("message is required"))
	}
	if strings.TrimSpace(req.EpisodeID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "converse", errors.New("episode id is required"))
	}

	episode, err := uc.episodes.GetEpisode(ctx, req.EpisodeID)
	if err != nil {
		return nil, fmt.Errorf("resolve episode: %w", err)
	}

	beats, err := uc.episodes.ListRecentBeats(ctx, episode.ID, uc.prompts.HistoryTurns)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := make([]domain.Turn, len(beats))
	for i, b := range beats {
		history[i] = domain.Turn{UserMessage: b.UserMessage, Response: b.Response}
	}

	contextChunks, err := uc.retriever.Retrieve(ctx, req.Message, req.MaxChunks, req.MinSimilarity, req.SourceIDs)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	persona := uc.personas.Get(episode.PersonaName)
	return &exchange{
		episode: episode,
		persona: persona,
		context: contextChunks,
		prompt:  uc.prompts.Build(persona, req.Message, contextChunks, history),
		started: uc.now(),
	}, nil
}

// finish turns the raw response into an Answer and persists the beat with
// its citations.
func (uc *ConverseUseCase) finish(ctx context.Context, req domain.ConverseRequest, ex *exchange, text string, tokens int) (*domain.Answer, error) {
	citations := uc.analyzer.Extract(text, ex.context)
	uc.validateAgainstContext(citations, text, ex.context)
	coverage := uc.analyzer.Coverage(text, len(citations))

	seq, err := uc.episodes.NextSequenceNumber(ctx, ex.episode.ID)
	if err != nil {
		return nil, fmt.Errorf("next beat sequence: %w", err)
	}
	beat := &domain.Beat{
		ID:             uuid.NewString(),
		EpisodeID:      ex.episode.ID,
		SequenceNumber: seq,
		UserMessage:    req.Message,
		Response:       text,
		ResponseTimeMs: uc.now().Sub(ex.started).Milliseconds(),
		TokenCount:     tokens,
		CitationCount:  len(citations),
		Annotations:    req.Annotations.Sanitize(),
		CreatedAt:      uc.now().UTC(),
	}
	if err := uc.episodes.CreateBeat(ctx, beat); err != nil {
		return nil, fmt.Errorf("store beat: %w", err)
	}

	stored, err := uc.tracker.Record(ctx, ex.episode.ID, beat.ID, citations)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		Text:            text,
		Citations:       stored,
		Coverage:        coverage,
		RetrievedChunks: len(ex.context),
		TokenCount:      tokens,
	}
	if req.IncludeContext {
		answer.Context = ex.context
	}
	return answer, nil
}

func approximateTokens(text string) int {
	n := int(float64(len(strings.Fields(text))) * 1.3)
	if n < 1 && text != "" {
		n = 1
	}
	return n
}

// validateAgainstContext scores each citation against its chunk while the
// retrieved context is still in memory, so the beat's citations carry
// validation scores without another round trip to storage.
func (uc *ConverseUseCase) validateAgainstContext(citations []domain.Citation, text string, contextChunks []domain.RetrievedChunk) {
	byChunk := make(map[string]*domain.RetrievedChunk, len(contextChunks))
	for i := range contextChunks {
		byChunk[contextChunks[i].Chunk.ID] = &contextChunks[i]
	}
	validatedAt := uc.now().UTC()
	for i := range citations {
		rc, ok := byChunk[citations[i].ChunkID]
		if !ok {
			continue
		}
		report := uc.analyzer.Validate(citations[i], text, rc.Chunk.Text, rc.SourceReliability)
		if report.Error != "" {
			continue
		}
		score := report.AccuracyScore
		citations[i].ValidationScore = &score
		citations[i].ValidatedAt = &validatedAt
	}
}
