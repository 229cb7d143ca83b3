package assistant_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/unclebandit/campaignplanner-backend/internal/assistant"
	appErrors "github.com/unclebandit/campaignplanner-backend/internal/errors"
)

func TestSendForwardsContextAndHistory(t *testing.T) {
	var seen struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hello back"}},
			},
		})
	}))
	defer srv.Close()

	gw := assistant.NewOpenAIGateway(assistant.OpenAIConfig{URL: srv.URL, APIKey: "sk-test", Model: "test-model"})

	history := []assistant.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	reply, err := gw.Send(context.Background(), "system prompt", history, "new question")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hello back" {
		t.Errorf("unexpected reply %q", reply)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("missing bearer token, got %q", auth)
	}
	if seen.Model != "test-model" {
		t.Errorf("model not forwarded, got %q", seen.Model)
	}
	if len(seen.Messages) != 4 {
		t.Fatalf("expected system + 2 history + utterance, got %d messages", len(seen.Messages))
	}
	if seen.Messages[0].Role != "system" || seen.Messages[0].Content != "system prompt" {
		t.Errorf("system message malformed: %+v", seen.Messages[0])
	}
	if seen.Messages[2].Role != "assistant" {
		t.Errorf("history roles not preserved: %+v", seen.Messages[2])
	}
	if seen.Messages[3].Content != "new question" {
		t.Errorf("utterance not last: %+v", seen.Messages[3])
	}
}

func TestSendTranslatesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gw := assistant.NewOpenAIGateway(assistant.OpenAIConfig{URL: srv.URL})

	_, err := gw.Send(context.Background(), "ctx", nil, "hi")
	var tio *appErrors.TransientIOError
	if !errors.As(err, &tio) {
		t.Fatalf("expected TransientIOError, got %v", err)
	}
}

func TestSendRejectsEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	gw := assistant.NewOpenAIGateway(assistant.OpenAIConfig{URL: srv.URL})

	_, err := gw.Send(context.Background(), "ctx", nil, "hi")
	if err == nil {
		t.Fatal("expected an error for an empty choices list")
	}
}
