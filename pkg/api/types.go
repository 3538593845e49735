package api

// ChatRequest is the body of POST /api/chat.
//
// Message is a pointer so that an absent or null field can be told apart
// from an empty string. Unknown fields are ignored by the decoder.
type ChatRequest struct {
	Message *string `json:"message"`
}

// Text returns the message text, or an empty string when it is unset.
func (r *ChatRequest) Text() string {
	if r == nil || r.Message == nil {
		return ""
	}
	return *r.Message
}

// ChatReply is the non-streaming response body.
type ChatReply struct {
	Reply string `json:"reply"`
}

// HealthStatus is the body returned by the root health check.
type HealthStatus struct {
	Status string `json:"status"`
}

// StatusOK is the only status value reported by the health check.
const StatusOK = "ok"

// Role identifies the author of an upstream message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of the sequence sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewConversation builds the two-entry sequence for a single turn: the
// system instruction followed by the user's message. A fresh slice is
// returned on every call.
func NewConversation(systemInstruction, userMessage string) []Message {
	return []Message{
		{Role: RoleSystem, Content: systemInstruction},
		{Role: RoleUser, Content: userMessage},
	}
}

// Usage reports token consumption for a single upstream call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
