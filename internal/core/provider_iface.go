package core

import "context"

// SpeechTranslation is what the recognition+translation provider returns.
type SpeechTranslation struct {
	RecognizedText string
	TranslatedText string
}

// SpeechTranslator recognizes speech in sourceTag and translates it into
// targetTag. Implementations must not retain audio after returning and must
// return domain.ErrNoSpeech (possibly wrapped) when nothing was recognized.
type SpeechTranslator interface {
	Name() string
	RecognizeAndTranslate(ctx context.Context, audio []byte, sourceTag, targetTag string) (SpeechTranslation, error)
}

// Recognizer converts one recorded utterance into text.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, audio []byte, languageTag string) (string, error)
}

// TranslationRequest carries the text to translate. Context is optional
// extra material (e.g. the original utterance when refining a draft).
type TranslationRequest struct {
	Text       string
	Context    string
	SourceTag  string
	TargetTag  string
	SourceName string
	TargetName string
}

// Translator translates a piece of text.
type Translator interface {
	Name() string
	Translate(ctx context.Context, req TranslationRequest) (string, error)
}
