package llm

// Message roles accepted by the gateway and the upstream completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single role-tagged message in a conversation.
// Messages are ordered and append-only from the client's perspective and are
// never persisted by the gateway.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"maxbytes"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role, text string) ChatMessage {
	return ChatMessage{
		Role:    role,
		Content: text,
	}
}

// IsSystem reports whether the message carries a system prompt.
func (m ChatMessage) IsSystem() bool {
	return m.Role == RoleSystem
}
