package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/infra/httpclient"
)

// ChatClient calls an OpenAI-compatible chat completions endpoint and returns
// the assistant message.
type ChatClient struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	apiKey      string
	limiter     *rate.Limiter
	client      *http.Client
	logger      *slog.Logger
}

// NewChatClient constructs a chat client for the given endpoint and model.
func NewChatClient(baseURL, model, apiKey string, temperature float64, maxTokens, timeoutSeconds int, limiter *rate.Limiter, logger *slog.Logger) *ChatClient {
	timeout := 120 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &ChatClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		apiKey:      apiKey,
		limiter:     limiter,
		client:      httpclient.NewPooledClient(timeout),
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the message sequence and returns the first choice's content.
func (c *ChatClient) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	c.logger.Info("cohere_chat_started",
		slog.Int("message_count", len(messages)),
		slog.String("model", c.Model),
	)
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait aborted: %w", err)
		}
	}

	wireMessages := make([]chatMessage, len(messages))
	for i, m := range messages {
		wireMessages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	reqBody := chatRequest{
		Model:       c.Model,
		Messages:    wireMessages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("cohere_chat_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return "", fmt.Errorf("failed to call chat endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("cohere_chat_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)),
		)
		return "", fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat endpoint returned no choices")
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)

	c.logger.Info("cohere_chat_completed",
		slog.Int("content_length", len(content)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return content, nil
}

// ModelName returns the wrapped model name.
func (c *ChatClient) ModelName() string {
	return c.Model
}

var _ domain.ChatClient = (*ChatClient)(nil)
