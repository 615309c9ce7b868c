package app

import (
	"encoding/json"

	"github.com/dkeye/VoiceBridge/internal/domain"
)

// Outbound event names.
const (
	EventNewCall      = "newCall"
	EventCallAnswered = "callAnswered"
	EventIceCandidate = "IceCandidate"
	EventCallEnded    = "callEnded"
	EventPlayVoice    = "playVoice"
	EventSTTResult    = "sttResult"
	EventSTTError     = "sttError"
	EventError        = "error"
)

type newCallEvent struct {
	Type     string          `json:"type"`
	CallerID domain.Identity `json:"callerId"`
	SDPOffer json.RawMessage `json:"sdpOffer"`
}

type callAnsweredEvent struct {
	Type      string          `json:"type"`
	Callee    domain.Identity `json:"callee"`
	SDPAnswer json.RawMessage `json:"sdpAnswer"`
}

type iceCandidateEvent struct {
	Type         string          `json:"type"`
	Sender       domain.Identity `json:"sender"`
	ICECandidate json.RawMessage `json:"iceCandidate"`
}

type callEndedEvent struct {
	Type string          `json:"type"`
	From domain.Identity `json:"from"`
}

type playVoiceEvent struct {
	Type  string          `json:"type"`
	From  domain.Identity `json:"from"`
	Voice json.RawMessage `json:"voice"`
}

type sttResultEvent struct {
	Type string `json:"type"`
	domain.TranslationResult
}

type sttErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// outbound builds the event relayed to the target for msg.
func outbound(msg domain.SignalingMessage) any {
	switch msg.Kind {
	case domain.SignalOffer:
		return newCallEvent{Type: EventNewCall, CallerID: msg.From, SDPOffer: msg.Payload}
	case domain.SignalAnswer:
		return callAnsweredEvent{Type: EventCallAnswered, Callee: msg.From, SDPAnswer: msg.Payload}
	case domain.SignalIceCandidate:
		return iceCandidateEvent{Type: EventIceCandidate, Sender: msg.From, ICECandidate: msg.Payload}
	case domain.SignalEndCall:
		return callEndedEvent{Type: EventCallEnded, From: msg.From}
	case domain.SignalVoice:
		return playVoiceEvent{Type: EventPlayVoice, From: msg.From, Voice: msg.Payload}
	}
	return nil
}
