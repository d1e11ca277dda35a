package entity

type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// CompletionRequest is the provider-neutral input of a generation call.
type CompletionRequest struct {
	Messages    []ChatMessage
	Temperature float32
	TopP        float32
	MaxTokens   int
}

type Completion struct {
	Content string
	Model   string
}
