package search

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/uniconhq/unicon-backend/internal/model"
)

// EmbeddingClient turns text into a fixed-size vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) (model.Vector, error)
}

// OpenAIEmbeddingClient calls the OpenAI embeddings endpoint.
type OpenAIEmbeddingClient struct {
	client openai.Client
	model  string
}

func NewOpenAIEmbeddingClient(apiKey, embeddingModel string) *OpenAIEmbeddingClient {
	return &OpenAIEmbeddingClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  embeddingModel,
	}
}

func (c *OpenAIEmbeddingClient) Embed(ctx context.Context, text string) (model.Vector, error) {
	text = strings.ReplaceAll(text, "\n", " ")
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: empty response")
	}
	raw := resp.Data[0].Embedding
	vector := make(model.Vector, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}
	return vector, nil
}

// BlendPreference nudges the user's preference vector toward an article the
// user just read: (1-alpha)*user + alpha*article.
func BlendPreference(user, article model.Vector, alpha float32) model.Vector {
	if len(user) == 0 {
		out := make(model.Vector, len(article))
		copy(out, article)
		return out
	}
	out := make(model.Vector, len(user))
	for i := range user {
		var a float32
		if i < len(article) {
			a = article[i]
		}
		out[i] = (1-alpha)*user[i] + alpha*a
	}
	return out
}
