// Package analyze turns sanitized markup into a natural-language description
// of a page's visual design using a generative-language model.
package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitelens/sitelens/log"
)

// Temperature is the fixed creativity parameter for design analysis.
const Temperature float32 = 0.7

// AnalysisError reports a failed generation call. There are no retries; the
// failure is surfaced to the caller.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %s", e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Provider is a generative-language backend.
type Provider interface {
	// Name returns the provider name for logging.
	Name() string
	// Generate submits a prompt and returns the reply text. An empty reply
	// is returned as "", not an error.
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Client formats analysis prompts and submits them to a provider.
type Client struct {
	log      zerolog.Logger
	provider Provider
}

func NewClient(provider Provider) *Client {
	return &Client{
		log:      log.NewLogger("analyze"),
		provider: provider,
	}
}

// Analyze submits the sanitized markup for a design analysis and returns the
// reply text, or "" when the model produced none.
func (c *Client) Analyze(ctx context.Context, markup string) (string, error) {
	prompt := FormatPrompt(ANALYSIS_PROMPT_INSTRUCTIONS, CreateContentPrompt(markup))

	c.log.Debug().
		Str("provider", c.provider.Name()).
		Int("input_tokens", EstimateTokens(prompt)).
		Msg("Submitting analysis prompt")

	start := time.Now()

	text, err := c.provider.Generate(ctx, prompt, Temperature)
	if err != nil {
		return "", &AnalysisError{Err: err}
	}

	c.log.Debug().
		Int("output_tokens", EstimateTokens(text)).
		Dur("duration", time.Since(start)).
		Msg("Analysis received")

	return text, nil
}
