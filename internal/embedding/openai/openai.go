package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Client produces embeddings through the OpenAI embeddings API.
type Client struct {
	api     *openai.Client
	model   string
	dim     int
	workers int
}

// Config configures the embeddings client. The API key is read from the
// environment variable named by APIKeyEnv.
type Config struct {
	APIKeyEnv string
	BaseURL   string
	Model     string
	BatchSize int
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	dim := 1536
	if cfg.Model == string(openai.LargeEmbedding3) {
		dim = 3072
	}
	return &Client{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		dim:     dim,
		workers: cfg.BatchSize,
	}, nil
}

func (c *Client) Name() string { return "openai-" + c.model }

func (c *Client) Dimension() int { return c.dim }

// Embed returns an L2-normalized embedding for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) == 0 {
		return nil, errors.New("cannot embed empty text")
	}
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	raw := resp.Data[0].Embedding
	v := make([]float32, len(raw))
	for i := range raw {
		v[i] = float32(raw[i])
	}
	l2normalize(v)
	return v, nil
}

// EmbedBatch embeds texts with a bounded number of concurrent API calls.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	errCh := make(chan error, len(texts))
	sem := make(chan struct{}, c.workers)
	for i := range texts {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()
			v, err := c.Embed(ctx, texts[idx])
			if err != nil {
				errCh <- fmt.Errorf("embedding text %d: %w", idx, err)
				return
			}
			vectors[idx] = v
			errCh <- nil
		}(i)
	}
	var firstErr error
	for range texts {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
