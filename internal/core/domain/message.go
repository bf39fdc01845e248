package domain

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in the prompt sequence sent to the language model.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

type StreamEventType string

const (
	StreamDelta StreamEventType = "delta"
	StreamDone  StreamEventType = "done"
	StreamError StreamEventType = "error"
)

// StreamEvent is one element of a streamed generation. A stream is a finite
// sequence of delta events closed by exactly one done or error event; the
// concatenation of delta contents equals the full response text. The done
// event of a conversation stream carries the finished Answer.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
	Answer  *Answer         `json:"answer,omitempty"`
	Err     error           `json:"-"`
}

// Answer is the result of one conversational exchange. RetrievedChunks is
// the context size regardless of whether Context itself is echoed back.
type Answer struct {
	Text            string           `json:"text"`
	Citations       []Citation       `json:"citations"`
	Coverage        CoverageReport   `json:"coverage"`
	Context         []RetrievedChunk `json:"context,omitempty"`
	RetrievedChunks int              `json:"retrieved_chunks"`
	TokenCount      int              `json:"token_count"`
}
