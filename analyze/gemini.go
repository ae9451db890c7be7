package analyze

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/sitelens/sitelens/log"
)

const DEFAULT_GEMINI_MODEL = "gemini-2.0-flash"

// Gemini is a Provider backed by the Google Gemini API.
type Gemini struct {
	log    zerolog.Logger
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini provider. An empty model selects the default.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = DEFAULT_GEMINI_MODEL
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	return &Gemini{
		log:    log.NewLogger("gemini"),
		client: client,
		model:  model,
	}, nil
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", errors.Wrap(err, "generate content request failed")
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
	}

	if text.Len() == 0 {
		g.log.Info().Str("model", g.model).Msg("Model returned no text")
	}

	return text.String(), nil
}
