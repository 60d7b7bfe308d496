package llm

import "context"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelClient is the interface the pipeline depends on. Implementations return the
// model's raw text; interpreting it is the parser's job.
type ModelClient interface {
	// Call sends the system prompt plus the chunk prompt.
	Call(ctx context.Context, model, prompt string) (string, error)
	// Repair replays the conversation with the model's previous output and asks for valid JSON.
	Repair(ctx context.Context, model, prompt, previous string) (string, error)
}

// Pinger reports whether the model endpoint is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
