package raptor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Embedder produces vector embeddings for a batch of texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const defaultEmbeddingBaseURL = "http://localhost:11434"

// OllamaEmbedder calls an Ollama-compatible /api/embed endpoint, falling
// back to the older single-text /api/embeddings endpoint when the batch
// endpoint is unavailable (pre-0.1.26 servers, or llama.cpp's subset).
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaEmbedder constructs an embedder against baseURL using model.
func NewOllamaEmbedder(model, baseURL string) *OllamaEmbedder {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultEmbeddingBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &OllamaEmbedder{
		baseURL: baseURL,
		model:   strings.TrimSpace(model),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if o.model == "" {
		return nil, fmt.Errorf("embedder requires a model name")
	}

	embeddings, fallback, err := o.embedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if !fallback {
		return embeddings, nil
	}
	return o.embedOneByOne(ctx, texts)
}

func (o *OllamaEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, bool, error) {
	status, body, err := o.postJSON(ctx, "/api/embed", map[string]any{"model": o.model, "input": texts})
	if err != nil {
		return nil, false, err
	}
	if status == http.StatusNotFound {
		return nil, true, nil
	}
	if status != http.StatusOK {
		return nil, false, fmt.Errorf("embedding request failed: %s", strings.TrimSpace(body))
	}
	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
		Error      string      `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, false, err
	}
	if resp.Error != "" {
		return nil, false, fmt.Errorf("embedding error: %s", resp.Error)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, false, fmt.Errorf("embedding endpoint returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, false, nil
}

func (o *OllamaEmbedder) embedOneByOne(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		status, body, err := o.postJSON(ctx, "/api/embeddings", map[string]any{"model": o.model, "prompt": text})
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("embedding request failed: %s", strings.TrimSpace(body))
		}
		var resp struct {
			Embedding []float32 `json:"embedding"`
			Error     string    `json:"error"`
		}
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			return nil, err
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("embedding error: %s", resp.Error)
		}
		out = append(out, resp.Embedding)
	}
	return out, nil
}

func (o *OllamaEmbedder) postJSON(ctx context.Context, path string, payload any) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(respBody), nil
}

// CachedEmbedder wraps an Embedder with an LRU cache keyed by a content
// hash, so re-chunking unchanged text during an incremental update never
// re-embeds it.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
	mu    sync.Mutex
}

// NewCachedEmbedder wraps inner with an LRU cache of the given capacity
// (spec §4.6's embedding_cache_capacity). capacity <= 0 defaults to 4096.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	if capacity <= 0 {
		capacity = 4096
	}
	cache, _ := lru.New[string, []float32](capacity)
	return &CachedEmbedder{inner: inner, cache: cache}
}

func textKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	results := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if v, ok := c.cache.Get(textKey(text)); ok {
			results[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	c.mu.Unlock()

	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for i, idx := range missIdx {
		results[idx] = fresh[i]
		c.cache.Add(textKey(missTexts[i]), fresh[i])
	}
	c.mu.Unlock()

	return results, nil
}
