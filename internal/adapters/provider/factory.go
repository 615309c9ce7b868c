// Package provider builds the speech recognition and translation backends
// selected in config.
package provider

import (
	"context"
	"fmt"

	"github.com/dkeye/VoiceBridge/internal/adapters/provider/chain"
	"github.com/dkeye/VoiceBridge/internal/adapters/provider/deepgram"
	"github.com/dkeye/VoiceBridge/internal/adapters/provider/gemini"
	"github.com/dkeye/VoiceBridge/internal/adapters/provider/google"
	"github.com/dkeye/VoiceBridge/internal/adapters/provider/openai"
	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/rs/zerolog/log"
)

// Set is the outcome of Build. Close releases provider clients.
type Set struct {
	Speech    core.SpeechTranslator
	Secondary core.Translator
	closers   []func() error
}

func (s *Set) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Str("module", "provider").Msg("close provider")
		}
	}
}

// Build wires the configured recognizer, first-pass translator and optional
// secondary translator. It returns a nil Set when no recognizer is selected.
func Build(ctx context.Context, cfg config.ProviderConfig) (*Set, error) {
	if cfg.Recognizer == "" {
		return nil, nil
	}
	set := &Set{}

	rec, err := buildRecognizer(ctx, cfg, set)
	if err != nil {
		set.Close()
		return nil, err
	}
	first, err := buildTranslator(ctx, cfg.Translator, cfg)
	if err != nil {
		set.Close()
		return nil, err
	}
	set.Speech = chain.New(rec, first)

	if cfg.Secondary != "" {
		if set.Secondary, err = buildTranslator(ctx, cfg.Secondary, cfg); err != nil {
			set.Close()
			return nil, err
		}
	}

	log.Info().
		Str("module", "provider").
		Str("speech", set.Speech.Name()).
		Str("secondary", cfg.Secondary).
		Msg("providers ready")
	return set, nil
}

func buildRecognizer(ctx context.Context, cfg config.ProviderConfig, set *Set) (core.Recognizer, error) {
	switch cfg.Recognizer {
	case "azure":
		return newAzure(cfg.Azure)
	case "google":
		r, closeFn, err := google.New(ctx, cfg.Google)
		if err != nil {
			return nil, err
		}
		set.closers = append(set.closers, closeFn)
		return r, nil
	case "deepgram":
		return deepgram.New(cfg.Deepgram.APIKey, cfg.Deepgram.Model)
	case "openai":
		c, err := openai.NewClient(cfg.OpenAI.APIKey)
		if err != nil {
			return nil, err
		}
		return c.Recognizer(cfg.OpenAI.TranscribeModel), nil
	}
	return nil, fmt.Errorf("unknown recognizer %q", cfg.Recognizer)
}

func buildTranslator(ctx context.Context, name string, cfg config.ProviderConfig) (core.Translator, error) {
	switch name {
	case "gemini":
		return gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "openai":
		c, err := openai.NewClient(cfg.OpenAI.APIKey)
		if err != nil {
			return nil, err
		}
		return c.Translator(cfg.OpenAI.ChatModel), nil
	}
	return nil, fmt.Errorf("unknown translator %q", name)
}
