package ports

import "context"

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatPart is one piece of multi-part message content.
// Exactly one of Text or ImageURL is set.
type ChatPart struct {
	Text     string
	ImageURL string // data: URL or remote URL
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role  ChatRole
	Parts []ChatPart
}

// TextMessage builds a single-part text message.
func TextMessage(role ChatRole, text string) ChatMessage {
	return ChatMessage{Role: role, Parts: []ChatPart{{Text: text}}}
}

// ChatRequest is a completion request over the full message history.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

// ChatResponse holds the assistant reply.
type ChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ChatClient abstracts a vision-capable chat completion API.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Limiter paces outbound requests. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}
