package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"book-orchestrator/internal/domain"
)

func TestChatClientComplete_SendsWireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected authorization header: %q", got)
		}

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["model"] != "command-a-03-2025" {
			t.Fatalf("unexpected model: %v", req["model"])
		}
		if req["temperature"] != 0.3 {
			t.Fatalf("unexpected temperature: %v", req["temperature"])
		}
		if req["max_tokens"] != float64(1000) {
			t.Fatalf("unexpected max_tokens: %v", req["max_tokens"])
		}
		messages, ok := req["messages"].([]interface{})
		if !ok || len(messages) != 2 {
			t.Fatalf("expected 2 messages, got %v", req["messages"])
		}
		first, _ := messages[0].(map[string]interface{})
		if first["role"] != "system" {
			t.Fatalf("expected system role first, got %v", first["role"])
		}
		second, _ := messages[1].(map[string]interface{})
		if second["role"] != "user" || second["content"] != "What is a goroutine?" {
			t.Fatalf("unexpected user message: %v", second)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  A goroutine is a lightweight thread.  "}}]}`))
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "command-a-03-2025", "test-key", 0.3, 1000, 10, nil, testLogger())
	answer, err := client.Complete(context.Background(), []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: "You answer from context."},
		{Role: domain.ChatRoleUser, Content: "What is a goroutine?"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if answer != "A goroutine is a lightweight thread." {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}
}

func TestChatClientComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "command-a-03-2025", "test-key", 0.3, 1000, 10, nil, testLogger())
	_, err := client.Complete(context.Background(), []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "question"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChatClientComplete_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer server.Close()

	client := NewChatClient(server.URL, "command-a-03-2025", "test-key", 0.3, 1000, 10, nil, testLogger())
	_, err := client.Complete(context.Background(), []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "question"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got: %v", err)
	}
}

func TestChatClientModelName(t *testing.T) {
	client := NewChatClient("http://localhost", "command-a-03-2025", "test-key", 0.3, 1000, 10, nil, testLogger())
	if client.ModelName() != "command-a-03-2025" {
		t.Fatalf("unexpected model name: %s", client.ModelName())
	}
}
