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

// EmbedClient calls an OpenAI-compatible embeddings endpoint. The default
// deployment points at Cohere's compatibility API, but any server speaking
// the same wire format works.
type EmbedClient struct {
	BaseURL string
	Model   string
	apiKey  string
	limiter *rate.Limiter
	client  *http.Client
	logger  *slog.Logger
}

// NewEmbedClient constructs an embed client for the given endpoint and model.
// The limiter is shared with the chat client so both respect one upstream quota.
func NewEmbedClient(baseURL, model, apiKey string, timeoutSeconds int, limiter *rate.Limiter, logger *slog.Logger) *EmbedClient {
	timeout := 30 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &EmbedClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		apiKey:  apiKey,
		limiter: limiter,
		client:  httpclient.NewPooledClient(timeout),
		logger:  logger,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *EmbedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embeddings endpoint returned no vectors")
	}
	return vectors[0], nil
}

func (e *EmbedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	e.logger.Info("cohere_embed_started",
		slog.Int("text_count", len(texts)),
		slog.String("model", e.Model),
	)
	start := time.Now()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait aborted: %w", err)
		}
	}

	reqBody := embedRequest{
		Model: e.Model,
		Input: texts,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/embeddings", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("cohere_embed_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("failed to call embeddings endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		e.logger.Error("cohere_embed_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	vectors := make([][]float32, len(respBody.Data))
	for i, item := range respBody.Data {
		vectors[i] = item.Embedding
	}

	e.logger.Info("cohere_embed_completed",
		slog.Int("embedding_count", len(vectors)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return vectors, nil
}

func (e *EmbedClient) Version() string {
	return e.Model
}

// Ping checks that the model API answers at all, using the model listing
// endpoint. Client errors count as reachable; only 5xx and transport
// failures do not.
func (e *EmbedClient) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/models", e.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("model api unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("model api returned %d", resp.StatusCode)
	}
	return nil
}

var _ domain.Embedder = (*EmbedClient)(nil)
