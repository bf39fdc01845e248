package domain

// Persona is the character voice a conversation speaks in. The system
// prompt carries the voice, the accuracy constraints, and the mandatory
// citation format.
type Persona struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Era          string `json:"era,omitempty"`
	SystemPrompt string `json:"-"`
}
