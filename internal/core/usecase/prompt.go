package usecase

import (
	"fmt"
	"strings"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

const defaultHistoryTurns = 5

// PromptBuilder renders persona instructions, retrieved context and
// conversation history into the message sequence sent to the model.
// Deterministic for identical inputs.
type PromptBuilder struct {
	HistoryTurns int
}

func NewPromptBuilder(historyTurns int) *PromptBuilder {
	if historyTurns <= 0 {
		historyTurns = defaultHistoryTurns
	}
	return &PromptBuilder{HistoryTurns: historyTurns}
}

func (b *PromptBuilder) Build(
	persona domain.Persona,
	userMessage string,
	contextChunks []domain.RetrievedChunk,
	history []domain.Turn,
) []domain.Message {
	messages := make([]domain.Message, 0, 2+2*b.HistoryTurns)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: persona.SystemPrompt})

	if len(history) > b.HistoryTurns {
		history = history[len(history)-b.HistoryTurns:]
	}
	for _, turn := range history {
		if turn.UserMessage != "" {
			messages = append(messages, domain.Message{Role: domain.RoleUser, Content: turn.UserMessage})
		}
		if turn.Response != "" {
			messages = append(messages, domain.Message{Role: domain.RoleAssistant, Content: turn.Response})
		}
	}

	messages = append(messages, domain.Message{
		Role:    domain.RoleUser,
		Content: b.renderUserPrompt(persona, userMessage, contextChunks),
	})
	return messages
}

func (b *PromptBuilder) renderUserPrompt(persona domain.Persona, userMessage string, chunks []domain.RetrievedChunk) string {
	speaker := persona.DisplayName
	if speaker == "" {
		speaker = persona.Name
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on the following historical sources, please respond as %s would have, addressing the user's question or comment.\n\n", speaker)
	sb.WriteString("HISTORICAL SOURCES:\n")
	sb.WriteString(renderContext(chunks))
	sb.WriteString("\n\nUSER MESSAGE: ")
	sb.WriteString(userMessage)
	fmt.Fprintf(&sb, "\n\nPlease respond in character as %s, using the provided sources to inform your response. ", speaker)
	sb.WriteString("Include specific citations in the format [Source: Title, Page/Location] for any factual claims or quotes. ")
	fmt.Fprintf(&sb, "Maintain %s's thoughtful, measured speaking style while making the content accessible to modern readers.", speaker)
	return sb.String()
}

// renderContext numbers each retrieved chunk with its source metadata so
// the model can cite by title.
func renderContext(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return "(no sources matched this question)"
	}

	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		author := c.SourceAuthor
		if author == "" {
			author = "Unknown"
		}
		parts = append(parts, fmt.Sprintf(
			"\n[%d] Source: %s\nAuthor: %s\nType: %s\nReliability: %.1f/1.0\nContent: %s\n---",
			i+1, c.SourceTitle, author, c.SourceType, c.SourceReliability, c.Chunk.Text,
		))
	}
	return strings.Join(parts, "\n")
}
