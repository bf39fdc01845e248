package domain

import "time"

type EpisodeStatus string

const (
	EpisodeDraft     EpisodeStatus = "draft"
	EpisodeRecording EpisodeStatus = "recording"
	EpisodeCompleted EpisodeStatus = "completed"
	EpisodeArchived  EpisodeStatus = "archived"
)

// Episode is one conversation session with a persona.
type Episode struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	PersonaName string        `json:"persona_name"`
	Status      EpisodeStatus `json:"status"`
	TotalBeats  int           `json:"total_beats"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Beat is one exchange within an episode. Beats form an append-only sequence
// ordered by SequenceNumber.
type Beat struct {
	ID             string          `json:"id"`
	EpisodeID      string          `json:"episode_id"`
	SequenceNumber int             `json:"sequence_number"`
	UserMessage    string          `json:"user_message"`
	Response       string          `json:"response"`
	ResponseTimeMs int64           `json:"response_time_ms"`
	TokenCount     int             `json:"token_count"`
	CitationCount  int             `json:"citation_count"`
	Annotations    BeatAnnotations `json:"annotations,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BeatAnnotations is a versioned key-value map with a closed key set.
// Unrecognized keys are dropped on load.
type BeatAnnotations map[string]string

const (
	AnnotationPinned = "pinned"
	AnnotationNotes  = "notes"
)

var recognizedAnnotations = map[string]struct{}{
	AnnotationPinned: {},
	AnnotationNotes:  {},
}

// Sanitize returns a copy holding only recognized keys.
func (a BeatAnnotations) Sanitize() BeatAnnotations {
	if len(a) == 0 {
		return nil
	}
	out := make(BeatAnnotations, len(a))
	for k, v := range a {
		if _, ok := recognizedAnnotations[k]; ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Turn is one prior user/assistant exchange fed back into prompt assembly.
type Turn struct {
	UserMessage string `json:"user_message"`
	Response    string `json:"response"`
}
