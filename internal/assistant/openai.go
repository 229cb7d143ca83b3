// internal/assistant/openai.go
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
)

// OpenAIConfig configures the chat-completions endpoint and HTTP behavior.
type OpenAIConfig struct {
	URL        string // defaults to the OpenAI chat completions endpoint
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

type openAIGateway struct {
	cfg OpenAIConfig
}

// NewOpenAIGateway builds a Gateway speaking the OpenAI-compatible
// chat-completions protocol.
func NewOpenAIGateway(cfg OpenAIConfig) Gateway {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = "https://api.openai.com/v1/chat/completions"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &openAIGateway{cfg: cfg}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *openAIGateway) Send(ctx context.Context, systemContext string, history []Message, utterance string) (string, error) {
	messages := []chatMessage{{Role: "system", Content: systemContext}}
	for _, m := range history {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: utterance})

	body, err := json.Marshal(chatRequest{Model: g.cfg.Model, Messages: messages})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", appErrors.NewTransientIO("assistant request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", appErrors.NewTransientIO("assistant response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", appErrors.NewTransientIO("assistant request",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", appErrors.NewTransientIO("assistant response", err)
	}
	if parsed.Error != nil {
		return "", appErrors.NewTransientIO("assistant request", fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", appErrors.NewTransientIO("assistant response", fmt.Errorf("no choices returned"))
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
