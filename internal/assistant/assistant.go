// internal/assistant/assistant.go
package assistant

import "context"

// Message is one turn of the chat history.
type Message struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

// Gateway is the opaque text-generation collaborator. It receives the
// serialized calendar + goal context and a user utterance and returns either
// prose or a single action JSON object; interpreting the reply is the action
// protocol's job, not the gateway's.
type Gateway interface {
	Send(ctx context.Context, systemContext string, history []Message, utterance string) (string, error)
}
