// Package google implements a core.Recognizer on Cloud Speech-to-Text v1.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/dkeye/VoiceBridge/internal/config"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const providerName = "google"

// recognizeClient is a local interface that wraps the unary Recognize call
// to enable easier testing.
type recognizeClient interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
}

type gcpClient struct {
	c *speech.Client
}

func (g gcpClient) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return g.c.Recognize(ctx, req)
}

type Recognizer struct {
	client     recognizeClient
	encoding   speechpb.RecognitionConfig_AudioEncoding
	sampleRate int32
	phrases    []string
}

// New dials the Speech API. The returned close func releases the connection.
func New(ctx context.Context, cfg config.GoogleConfig) (*Recognizer, func() error, error) {
	opts := make([]option.ClientOption, 0, 2)
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("google: new speech client: %w", err)
	}
	enc, err := parseEncoding(cfg.Encoding)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return &Recognizer{
		client:     gcpClient{c: client},
		encoding:   enc,
		sampleRate: cfg.SampleRate,
		phrases:    cfg.Phrases,
	}, client.Close, nil
}

func parseEncoding(name string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	if name == "" {
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, nil
	}
	v, ok := speechpb.RecognitionConfig_AudioEncoding_value[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("google: unknown audio encoding %q", name)
	}
	return speechpb.RecognitionConfig_AudioEncoding(v), nil
}

func (r *Recognizer) Name() string { return providerName }

func (r *Recognizer) request(audio []byte, languageTag string) *speechpb.RecognizeRequest {
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   r.encoding,
		SampleRateHertz:            r.sampleRate,
		LanguageCode:               languageTag,
		EnableAutomaticPunctuation: true,
	}
	if len(r.phrases) > 0 {
		cfg.SpeechContexts = []*speechpb.SpeechContext{{Phrases: r.phrases}}
	}
	return &speechpb.RecognizeRequest{
		Config: cfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
}

// Recognize joins the best alternative of every result. An empty string
// means nothing was heard.
func (r *Recognizer) Recognize(ctx context.Context, audio []byte, languageTag string) (string, error) {
	resp, err := r.client.Recognize(ctx, r.request(audio, languageTag))
	if err != nil {
		if status.Code(err) == codes.DeadlineExceeded {
			return "", fmt.Errorf("google: %w", context.DeadlineExceeded)
		}
		return "", err
	}
	parts := make([]string, 0, len(resp.GetResults()))
	for _, res := range resp.GetResults() {
		if alts := res.GetAlternatives(); len(alts) > 0 {
			if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " "), nil
}
