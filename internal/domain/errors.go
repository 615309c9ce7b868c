package domain

import (
	"errors"
	"fmt"
)

var (
	ErrIdentityMissing   = errors.New("callerId is required")
	ErrIdentityTooLong   = errors.New("callerId too long")
	ErrNoSpeech          = errors.New("speech could not be recognized")
	ErrInvalidTransition = errors.New("invalid call transition")
	ErrRateLimited       = errors.New("too many audio recordings, slow down")
)

// Texts shown to end users, which differ from the error strings.
const (
	msgNoSpeech = "Speech could not be recognized"
	msgBadAudio = "Audio could not be decoded"
)

// DecodeError reports a malformed audio payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid audio payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Pipeline stages a ProviderError can originate from.
const (
	StageRecognize = "recognize"
	StageTranslate = "translate"
	StageRefine    = "refine"
)

// ProviderError wraps any failure of a recognition or translation backend,
// including panics recovered from provider clients.
type ProviderError struct {
	Provider string
	Stage    string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// UserMessage turns a pipeline error into the text shown to the sender.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSpeech):
		return msgNoSpeech
	case errors.Is(err, ErrRateLimited):
		return ErrRateLimited.Error()
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return msgBadAudio
	}
	return err.Error()
}
