package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/retry"
)

// Gemini implements Client on top of a Genkit-registered Gemini model.
// Transient provider errors are retried with exponential backoff and all
// attempts share one rate limiter so retries cannot amplify quota pressure.
type Gemini struct {
	g         *genkit.Genkit
	modelName string
	retryCfg  retry.Config
	limiter   *rate.Limiter
	logger    log.Logger
}

// Option configures a Gemini client.
type Option func(*Gemini)

// WithRetryConfig overrides the default backoff policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Gemini) { c.retryCfg = cfg }
}

// WithRateLimiter shares a request limiter across clients.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Gemini) { c.limiter = l }
}

// NewGemini builds a client for the named model, e.g. "gemini-2.5-flash".
func NewGemini(g *genkit.Genkit, modelName string, logger log.Logger, opts ...Option) *Gemini {
	c := &Gemini{
		g:         g,
		modelName: "googleai/" + modelName,
		retryCfg:  retry.DefaultConfig(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements Client.
func (c *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("complete: no messages")
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithMessages(toGenkitMessages(req.Messages)...),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if req.Temperature != nil {
		opts = append(opts, ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(*req.Temperature),
		}))
	}

	resp, err := retry.Do(ctx, c.retryCfg, c.limiter, func(ctx context.Context) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, c.g, opts...)
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", c.modelName, err)
	}

	text := resp.Text()
	c.logger.Debug("model completion",
		"model", c.modelName,
		"messages", len(req.Messages),
		"response_chars", len(text),
	)
	return text, nil
}

func toGenkitMessages(msgs []Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(msgs))
	for _, m := range msgs {
		part := ai.NewTextPart(m.Content)
		switch m.Role {
		case RoleAssistant:
			out = append(out, ai.NewModelMessage(part))
		case RoleSystem:
			out = append(out, ai.NewSystemMessage(part))
		default:
			out = append(out, ai.NewUserMessage(part))
		}
	}
	return out
}
