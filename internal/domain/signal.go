package domain

import "encoding/json"

// SignalKind enumerates the relayed call-control variants.
type SignalKind int

const (
	SignalOffer SignalKind = iota
	SignalAnswer
	SignalIceCandidate
	SignalEndCall
	SignalVoice
)

func (k SignalKind) String() string {
	switch k {
	case SignalOffer:
		return "offer"
	case SignalAnswer:
		return "answer"
	case SignalIceCandidate:
		return "ice_candidate"
	case SignalEndCall:
		return "end_call"
	case SignalVoice:
		return "voice"
	}
	return "unknown"
}

// SignalingMessage is constructed per inbound event, forwarded and discarded.
// Payload is opaque to the relay and forwarded byte-for-byte.
type SignalingMessage struct {
	Kind    SignalKind
	From    Identity
	To      Identity
	Payload json.RawMessage
}
