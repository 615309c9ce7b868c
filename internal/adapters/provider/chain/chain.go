// Package chain composes a recognizer and a translator into a single
// recognition+translation provider.
package chain

import (
	"context"
	"strings"

	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
)

type Provider struct {
	Recognizer core.Recognizer
	Translator core.Translator
}

func New(r core.Recognizer, t core.Translator) *Provider {
	return &Provider{Recognizer: r, Translator: t}
}

func (p *Provider) Name() string {
	return p.Recognizer.Name() + "+" + p.Translator.Name()
}

func (p *Provider) RecognizeAndTranslate(ctx context.Context, audio []byte, sourceTag, targetTag string) (core.SpeechTranslation, error) {
	text, err := p.Recognizer.Recognize(ctx, audio, sourceTag)
	if err != nil {
		return core.SpeechTranslation{}, &domain.ProviderError{Provider: p.Recognizer.Name(), Stage: domain.StageRecognize, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return core.SpeechTranslation{}, &domain.ProviderError{Provider: p.Recognizer.Name(), Stage: domain.StageRecognize, Err: domain.ErrNoSpeech}
	}

	req := core.TranslationRequest{Text: text, SourceTag: sourceTag, TargetTag: targetTag}
	if lang := domain.ParseLanguage(sourceTag); lang.SourceTag() == sourceTag {
		req.SourceName, req.TargetName = lang.SourceName(), lang.TargetName()
	}
	translated, err := p.Translator.Translate(ctx, req)
	if err != nil {
		return core.SpeechTranslation{RecognizedText: text}, &domain.ProviderError{Provider: p.Translator.Name(), Stage: domain.StageTranslate, Err: err}
	}
	return core.SpeechTranslation{RecognizedText: text, TranslatedText: strings.TrimSpace(translated)}, nil
}
