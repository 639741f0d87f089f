// Package openai implements the Embedder client for OpenAI-compatible
// embedding endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/recall/pkg/embeddings"
)

// DefaultEmbeddingModel is the default model used for embeddings.
const DefaultEmbeddingModel = string(goopenai.SmallEmbedding3)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// APIKey authenticates against the endpoint. Required.
	APIKey string

	// BaseURL overrides the API URL for OpenAI-compatible servers.
	BaseURL string

	// Model is the embedding model. Defaults to DefaultEmbeddingModel.
	Model string

	// Dimensions requests shortened embeddings from models that support it.
	// Zero leaves the model's native size.
	Dimensions int
}

// Embedder wraps the OpenAI embeddings API.
type Embedder struct {
	client     *goopenai.Client
	model      goopenai.EmbeddingModel
	dimensions int
}

// NewEmbedder creates a new embedder using the OpenAI embeddings API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	config := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		client:     goopenai.NewClientWithConfig(config),
		model:      goopenai.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      []string{text},
		Model:      e.model,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai request: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrEmbedding)
	}

	return resp.Data[0].Embedding, nil
}

// Close is a no-op; the underlying HTTP client needs no cleanup.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
