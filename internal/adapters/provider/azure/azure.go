//go:build azurespeech

package azure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/rs/zerolog/log"
)

const providerName = "azure"

type Recognizer struct {
	key    string
	region string
}

func New(cfg config.AzureConfig) (*Recognizer, error) {
	if cfg.Key == "" || cfg.Region == "" {
		return nil, errors.New("azure: key and region are required")
	}
	return &Recognizer{key: cfg.Key, region: cfg.Region}, nil
}

func (r *Recognizer) Name() string { return providerName }

// Recognize pushes the whole clip and runs a single-shot recognition.
// Clips are compressed browser recordings, decoded by the SDK.
func (r *Recognizer) Recognize(ctx context.Context, clip []byte, languageTag string) (string, error) {
	cfg, err := speech.NewSpeechConfigFromSubscription(r.key, r.region)
	if err != nil {
		return "", fmt.Errorf("azure: speech config: %w", err)
	}
	defer cfg.Close()
	if err := cfg.SetSpeechRecognitionLanguage(languageTag); err != nil {
		return "", fmt.Errorf("azure: set language: %w", err)
	}

	format, err := audio.GetCompressedFormat(audio.ANY)
	if err != nil {
		return "", fmt.Errorf("azure: audio format: %w", err)
	}
	defer format.Close()
	stream, err := audio.CreatePushAudioInputStreamFromFormat(format)
	if err != nil {
		return "", fmt.Errorf("azure: push stream: %w", err)
	}
	defer stream.Close()
	if err := stream.Write(clip); err != nil {
		return "", fmt.Errorf("azure: write audio: %w", err)
	}
	stream.CloseStream()

	audioCfg, err := audio.NewAudioConfigFromStreamInput(stream)
	if err != nil {
		return "", fmt.Errorf("azure: audio config: %w", err)
	}
	defer audioCfg.Close()

	recognizer, err := speech.NewSpeechRecognizerFromConfig(cfg, audioCfg)
	if err != nil {
		return "", fmt.Errorf("azure: recognizer: %w", err)
	}
	defer recognizer.Close()

	var outcome speech.SpeechRecognitionOutcome
	select {
	case outcome = <-recognizer.RecognizeOnceAsync():
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer outcome.Close()
	if outcome.Error != nil {
		return "", outcome.Error
	}

	switch outcome.Result.Reason {
	case common.RecognizedSpeech:
		return strings.TrimSpace(outcome.Result.Text), nil
	case common.NoMatch:
		return "", nil
	case common.Canceled:
		details, err := speech.NewCancellationDetailsFromSpeechRecognitionResult(outcome.Result)
		if err != nil {
			return "", fmt.Errorf("azure: recognition canceled")
		}
		log.Warn().Str("module", "provider.azure").Str("details", details.ErrorDetails).Msg("recognition canceled")
		return "", fmt.Errorf("azure: recognition canceled: %s", details.ErrorDetails)
	}
	return "", fmt.Errorf("azure: unexpected result reason %v", outcome.Result.Reason)
}
