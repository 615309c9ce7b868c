// Package gemini implements a core.Translator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dkeye/VoiceBridge/internal/adapters/provider/prompt"
	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const providerName = "gemini"

const (
	maxAttempts  = 3
	initialDelay = time.Second
)

// contentGenerator is the subset of *genai.Models the translator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Translator struct {
	models contentGenerator
	model  string
	delay  time.Duration
}

func New(ctx context.Context, apiKey, model string) (*Translator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Translator{models: client.Models, model: model, delay: initialDelay}, nil
}

func (t *Translator) Name() string { return providerName }

// Translate retries rate-limited calls with exponential backoff.
func (t *Translator) Translate(ctx context.Context, req core.TranslationRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
	}
	contents := genai.Text(prompt.Translate(req))

	delay := t.delay
	for attempt := 1; ; attempt++ {
		resp, err := t.models.GenerateContent(ctx, t.model, contents, cfg)
		if err == nil {
			return prompt.Clean(resp.Text()), nil
		}
		if !rateLimited(err) || attempt >= maxAttempts {
			return "", err
		}
		log.Warn().Err(err).Str("module", "provider.gemini").Int("attempt", attempt).Dur("retry_in", delay).Msg("rate limited")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func rateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}
