package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

type sourceRepoFake struct {
	sources map[string]domain.Source
	getErr  error
}

func (f *sourceRepoFake) Create(_ context.Context, src *domain.Source) error {
	if f.sources == nil {
		f.sources = make(map[string]domain.Source)
	}
	f.sources[src.ID] = *src
	return nil
}

func (f *sourceRepoFake) GetByID(_ context.Context, id string) (*domain.Source, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	src, ok := f.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
	}
	return &src, nil
}

func (f *sourceRepoFake) GetByIDs(_ context.Context, ids []string) (map[string]domain.Source, error) {
	out := make(map[string]domain.Source)
	for _, id := range ids {
		if src, ok := f.sources[id]; ok {
			out[id] = src
		}
	}
	return out, nil
}

func (f *sourceRepoFake) List(context.Context) ([]domain.Source, error) {
	out := make([]domain.Source, 0, len(f.sources))
	for _, src := range f.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type chunkRepoFake struct {
	chunks  map[string]domain.Chunk
	created []domain.Chunk
	getErr  error
}

func (f *chunkRepoFake) CreateBatch(_ context.Context, chunks []domain.Chunk) error {
	if f.chunks == nil {
		f.chunks = make(map[string]domain.Chunk)
	}
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
	f.created = append(f.created, chunks...)
	return nil
}

func (f *chunkRepoFake) GetByID(_ context.Context, id string) (*domain.Chunk, error) {
	c, ok := f.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (f *chunkRepoFake) GetByIDs(_ context.Context, ids []string) ([]domain.Chunk, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []domain.Chunk
	for _, id := range ids {
		if c, ok := f.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *chunkRepoFake) ListByDocument(_ context.Context, documentID string) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for _, c := range f.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *chunkRepoFake) DeleteByDocument(_ context.Context, documentID string) error {
	for id, c := range f.chunks {
		if c.DocumentID == documentID {
			delete(f.chunks, id)
		}
	}
	return nil
}

type episodeRepoFake struct {
	episodes map[string]domain.Episode
	beats    []domain.Beat
	beatErr  error
}

func (f *episodeRepoFake) CreateEpisode(_ context.Context, ep *domain.Episode) error {
	if f.episodes == nil {
		f.episodes = make(map[string]domain.Episode)
	}
	f.episodes[ep.ID] = *ep
	return nil
}

func (f *episodeRepoFake) GetEpisode(_ context.Context, id string) (*domain.Episode, error) {
	ep, ok := f.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, domain.ErrNotFound)
	}
	return &ep, nil
}

func (f *episodeRepoFake) UpdateEpisodeStatus(_ context.Context, id string, status domain.EpisodeStatus) error {
	ep, ok := f.episodes[id]
	if !ok {
		return fmt.Errorf("episode %s: %w", id, domain.ErrNotFound)
	}
	ep.Status = status
	f.episodes[id] = ep
	return nil
}

func (f *episodeRepoFake) CreateBeat(_ context.Context, beat *domain.Beat) error {
	if f.beatErr != nil {
		return f.beatErr
	}
	f.beats = append(f.beats, *beat)
	return nil
}

func (f *episodeRepoFake) GetBeat(_ context.Context, id string) (*domain.Beat, error) {
	for _, b := range f.beats {
		if b.ID == id {
			copyBeat := b
			return &copyBeat, nil
		}
	}
	return nil, fmt.Errorf("beat %s: %w", id, domain.ErrNotFound)
}

func (f *episodeRepoFake) ListRecentBeats(_ context.Context, episodeID string, limit int) ([]domain.Beat, error) {
	var out []domain.Beat
	for _, b := range f.beats {
		if b.EpisodeID == episodeID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *episodeRepoFake) NextSequenceNumber(_ context.Context, episodeID string) (int, error) {
	max := 0
	for _, b := range f.beats {
		if b.EpisodeID == episodeID && b.SequenceNumber > max {
			max = b.SequenceNumber
		}
	}
	return max + 1, nil
}

type citationRepoFake struct {
	citations  []domain.Citation
	saveCalls  int
	statsErr   error
	sourceRows []domain.SourceCitationStats
}

func (f *citationRepoFake) Create(_ context.Context, c *domain.Citation) error {
	f.citations = append(f.citations, *c)
	return nil
}

func (f *citationRepoFake) GetByID(_ context.Context, id string) (*domain.Citation, error) {
	for _, c := range f.citations {
		if c.ID == id {
			copyCit := c
			return &copyCit, nil
		}
	}
	return nil, fmt.Errorf("citation %s: %w", id, domain.ErrNotFound)
}

func (f *citationRepoFake) ListByEpisode(_ context.Context, episodeID string) ([]domain.Citation, error) {
	var out []domain.Citation
	for _, c := range f.citations {
		if c.EpisodeID == episodeID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *citationRepoFake) ListByBeat(_ context.Context, beatID string) ([]domain.Citation, error) {
	var out []domain.Citation
	for _, c := range f.citations {
		if c.BeatID == beatID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *citationRepoFake) SaveValidation(_ context.Context, id string, score float64, validatedAt time.Time) error {
	f.saveCalls++
	for i := range f.citations {
		if f.citations[i].ID == id {
			s := score
			t := validatedAt
			f.citations[i].ValidationScore = &s
			f.citations[i].ValidatedAt = &t
			return nil
		}
	}
	return fmt.Errorf("citation %s: %w", id, domain.ErrNotFound)
}

func (f *citationRepoFake) SourceStats(context.Context, string) ([]domain.SourceCitationStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.sourceRows, nil
}

type embedderFake struct {
	queryVector []float32
	vectors     [][]float32
	err         error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.queryVector, nil
}

func (f *embedderFake) Dimensions() int { return len(f.queryVector) }

type vectorIndexFake struct {
	hits      []domain.VectorHit
	indexed   []domain.Chunk
	searchErr error
	filter    domain.SearchFilter
	limit     int
}

func (f *vectorIndexFake) IndexChunks(_ context.Context, _ *domain.Document, chunks []domain.Chunk) error {
	f.indexed = append(f.indexed, chunks...)
	return nil
}

func (f *vectorIndexFake) Search(_ context.Context, _ []float32, limit int, filter domain.SearchFilter) ([]domain.VectorHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.limit = limit
	f.filter = filter
	return f.hits, nil
}

func (f *vectorIndexFake) DeleteByDocument(context.Context, string) error { return nil }

type personaProviderFake struct {
	persona domain.Persona
}

func (f *personaProviderFake) Get(string) domain.Persona { return f.persona }

type chatModelFake struct {
	response string
	tokens   int
	err      error
	events   []domain.StreamEvent
	prompt   []domain.Message
}

func (f *chatModelFake) Complete(_ context.Context, messages []domain.Message) (string, int, error) {
	f.prompt = messages
	if f.err != nil {
		return "", 0, f.err
	}
	return f.response, f.tokens, nil
}

func (f *chatModelFake) Stream(_ context.Context, messages []domain.Message) (<-chan domain.StreamEvent, error) {
	f.prompt = messages
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan domain.StreamEvent, len(f.events))
	for _, ev := range f.events {
		out <- ev
	}
	close(out)
	return out, nil
}

type retrieverFake struct {
	chunks []domain.RetrievedChunk
	err    error
}

func (f *retrieverFake) Retrieve(context.Context, string, int, float64, []string) ([]domain.RetrievedChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type storageFake struct {
	saved map[string][]byte
	err   error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[key] = body
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

type documentRepoFake struct {
	docs        map[string]domain.Document
	statusCalls []statusCall
	processed   map[string]int
}

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

func (f *documentRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.docs == nil {
		f.docs = make(map[string]domain.Document)
	}
	f.docs[doc.ID] = *doc
	return nil
}

func (f *documentRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return &doc, nil
}

func (f *documentRepoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.Status = status
	f.docs[id] = doc
	return nil
}

func (f *documentRepoFake) MarkProcessed(_ context.Context, id string, chunkCount int) error {
	if f.processed == nil {
		f.processed = make(map[string]int)
	}
	f.processed[id] = chunkCount
	doc := f.docs[id]
	doc.Status = domain.StatusCompleted
	f.docs[id] = doc
	return nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type chunkerFake struct {
	chunks []domain.Chunk
	err    error
}

func (f *chunkerFake) Split(string) ([]domain.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}
