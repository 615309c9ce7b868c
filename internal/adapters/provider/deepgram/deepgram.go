// Package deepgram implements a core.Recognizer by streaming one recorded
// clip through a Deepgram live transcription session.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog/log"
)

const (
	providerName = "deepgram"
	chunkSize    = 8 << 10
	// settleAfter ends a session when no message arrived for this long after
	// the whole clip was sent.
	settleAfter = 1500 * time.Millisecond
)

// dgWriter is a local interface that wraps the methods we need
// from the websocket client to enable easier testing
type dgWriter interface {
	io.Writer
	Stop()
}

// ChannelHandler implements the LiveMessageChan interface for receiving Deepgram messages
type ChannelHandler struct {
	openChan          chan *api.OpenResponse
	messageChan       chan *api.MessageResponse
	metadataChan      chan *api.MetadataResponse
	speechStartedChan chan *api.SpeechStartedResponse
	utteranceEndChan  chan *api.UtteranceEndResponse
	closeChan         chan *api.CloseResponse
	errorChan         chan *api.ErrorResponse
	unhandledChan     chan *[]byte
}

func NewChannelHandler() *ChannelHandler {
	return &ChannelHandler{
		openChan:          make(chan *api.OpenResponse, 1),
		messageChan:       make(chan *api.MessageResponse, 16),
		metadataChan:      make(chan *api.MetadataResponse, 1),
		speechStartedChan: make(chan *api.SpeechStartedResponse, 1),
		utteranceEndChan:  make(chan *api.UtteranceEndResponse, 1),
		closeChan:         make(chan *api.CloseResponse, 1),
		errorChan:         make(chan *api.ErrorResponse, 1),
		unhandledChan:     make(chan *[]byte, 1),
	}
}

func (ch *ChannelHandler) GetOpen() []*chan *api.OpenResponse {
	return []*chan *api.OpenResponse{&ch.openChan}
}

func (ch *ChannelHandler) GetMessage() []*chan *api.MessageResponse {
	return []*chan *api.MessageResponse{&ch.messageChan}
}

func (ch *ChannelHandler) GetMetadata() []*chan *api.MetadataResponse {
	return []*chan *api.MetadataResponse{&ch.metadataChan}
}

func (ch *ChannelHandler) GetSpeechStarted() []*chan *api.SpeechStartedResponse {
	return []*chan *api.SpeechStartedResponse{&ch.speechStartedChan}
}

func (ch *ChannelHandler) GetUtteranceEnd() []*chan *api.UtteranceEndResponse {
	return []*chan *api.UtteranceEndResponse{&ch.utteranceEndChan}
}

func (ch *ChannelHandler) GetClose() []*chan *api.CloseResponse {
	return []*chan *api.CloseResponse{&ch.closeChan}
}

func (ch *ChannelHandler) GetError() []*chan *api.ErrorResponse {
	return []*chan *api.ErrorResponse{&ch.errorChan}
}

func (ch *ChannelHandler) GetUnhandled() []*chan *[]byte {
	return []*chan *[]byte{&ch.unhandledChan}
}

type Recognizer struct {
	apiKey string
	model  string
	settle time.Duration
	dial   func(ctx context.Context, languageTag string, ch *ChannelHandler) (dgWriter, error)
}

func New(apiKey, model string) (*Recognizer, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: api key is required")
	}
	client.InitWithDefault()
	r := &Recognizer{apiKey: apiKey, model: model, settle: settleAfter}
	r.dial = r.connect
	return r, nil
}

func (r *Recognizer) Name() string { return providerName }

func (r *Recognizer) connect(ctx context.Context, languageTag string, ch *ChannelHandler) (dgWriter, error) {
	cOptions := &interfaces.ClientOptions{
		APIKey:          r.apiKey,
		EnableKeepAlive: true,
	}
	// Encoding is left empty: recorded clips are containerized and detected
	// by the service.
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          r.model,
		Language:       languageTag,
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		UtteranceEndMs: "1000",
	}
	dgClient, err := client.NewWSUsingChan(ctx, "", cOptions, tOptions, ch)
	if err != nil {
		return nil, err
	}
	if ok := dgClient.Connect(); !ok {
		return nil, errors.New("failed to connect to deepgram")
	}
	return dgClient, nil
}

func (r *Recognizer) Recognize(ctx context.Context, audio []byte, languageTag string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := NewChannelHandler()
	w, err := r.dial(ctx, languageTag, ch)
	if err != nil {
		return "", err
	}
	defer w.Stop()

	for off := 0; off < len(audio); off += chunkSize {
		end := min(off+chunkSize, len(audio))
		if _, err := w.Write(audio[off:end]); err != nil {
			return "", fmt.Errorf("deepgram: write audio: %w", err)
		}
	}
	return collect(ctx, ch, r.settle)
}

// collect gathers final transcripts until the utterance ends, the session
// closes or goes quiet for settle.
func collect(ctx context.Context, ch *ChannelHandler, settle time.Duration) (string, error) {
	var parts []string
	timer := time.NewTimer(settle)
	defer timer.Stop()

	done := func() (string, error) { return strings.Join(parts, " "), nil }
	for {
		select {
		case msg := <-ch.messageChan:
			if sentence := finalSentence(msg); sentence != "" {
				parts = append(parts, sentence)
			}
			timer.Reset(settle)
		case <-ch.utteranceEndChan:
			if len(parts) > 0 {
				return done()
			}
		case e := <-ch.errorChan:
			if e != nil {
				return "", fmt.Errorf("%s", e)
			}
		case <-ch.closeChan:
			return done()
		case <-ch.openChan:
		case <-ch.metadataChan:
		case <-ch.speechStartedChan:
			timer.Reset(settle)
		case b := <-ch.unhandledChan:
			if b != nil {
				log.Debug().Str("module", "provider.deepgram").Int("bytes", len(*b)).Msg("unhandled message")
			}
		case <-timer.C:
			return done()
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func finalSentence(msg *api.MessageResponse) string {
	if msg == nil || !msg.IsFinal || len(msg.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(msg.Channel.Alternatives[0].Transcript)
}
