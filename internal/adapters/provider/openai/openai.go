// Package openai provides a recognizer on the audio transcription API and a
// translator on chat completions.
package openai

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/dkeye/VoiceBridge/internal/adapters/provider/prompt"
	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const providerName = "openai"

type Client struct {
	client openai.Client
}

func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	return &Client{client: openai.NewClient(option.WithAPIKey(apiKey))}, nil
}

type Recognizer struct {
	model      string
	transcribe func(ctx context.Context, params openai.AudioTranscriptionNewParams) (string, error)
}

func (c *Client) Recognizer(model string) *Recognizer {
	return &Recognizer{
		model: model,
		transcribe: func(ctx context.Context, params openai.AudioTranscriptionNewParams) (string, error) {
			res, err := c.client.Audio.Transcriptions.New(ctx, params)
			if err != nil {
				return "", err
			}
			return res.Text, nil
		},
	}
}

func (r *Recognizer) Name() string { return providerName }

func (r *Recognizer) Recognize(ctx context.Context, audio []byte, languageTag string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio.webm", "audio/webm"),
		Model: openai.AudioModel(r.model),
	}
	if lang := baseLanguage(languageTag); lang != "" {
		params.Language = openai.String(lang)
	}
	text, err := r.transcribe(ctx, params)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

type Translator struct {
	model    string
	complete func(ctx context.Context, params openai.ChatCompletionNewParams) (string, error)
}

func (c *Client) Translator(model string) *Translator {
	return &Translator{
		model: model,
		complete: func(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
			res, err := c.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return "", err
			}
			if len(res.Choices) == 0 {
				return "", errors.New("openai: empty completion")
			}
			return res.Choices[0].Message.Content, nil
		},
	}
}

func (t *Translator) Name() string { return providerName }

func (t *Translator) Translate(ctx context.Context, req core.TranslationRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.Translate(req)),
		},
		Temperature: openai.Float(0.2),
	}
	out, err := t.complete(ctx, params)
	if err != nil {
		return "", err
	}
	return prompt.Clean(out), nil
}

// baseLanguage turns a BCP-47 tag like my-MM into the ISO-639-1 code the
// transcription API expects.
func baseLanguage(tag string) string {
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}
