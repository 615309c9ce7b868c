package app

import (
	"encoding/json"
	"strings"

	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/pion/sdp/v3"
	"github.com/rs/zerolog/log"
)

// Relay forwards call-control messages to the connections of the target
// identity. It is stateless unless a CallTracker is attached (strict mode).
type Relay struct {
	Dispatch *Dispatcher
	Calls    *CallTracker
}

func NewRelay(d *Dispatcher, strict bool) *Relay {
	r := &Relay{Dispatch: d}
	if strict {
		r.Calls = NewCallTracker()
	}
	return r
}

// Forward relays msg from the sender connection. An offline target is a
// silent no-op. In strict mode an illegal transition is reported to the
// sender and nothing is forwarded; the call state only moves once at least
// one connection of the target received the message.
func (r *Relay) Forward(from core.Connection, msg domain.SignalingMessage) PublishResult {
	msg.From = from.Identity()
	logger := log.With().
		Str("module", "app.relay").
		Str("kind", msg.Kind.String()).
		Str("from", string(msg.From)).
		Str("to", string(msg.To)).
		Logger()

	var step CallStep
	if r.Calls != nil {
		var err error
		if step, err = r.Calls.Check(msg); err != nil {
			logger.Warn().Err(err).Msg("rejected signaling message")
			_ = r.Dispatch.Reply(from, errorEvent{Type: EventError, Error: err.Error()})
			return PublishResult{}
		}
	}

	if msg.Kind == domain.SignalOffer || msg.Kind == domain.SignalAnswer {
		if media, ok := describeSDP(msg.Payload); ok {
			logger.Debug().Strs("media", media).Msg("session description")
		}
	}

	res := r.Dispatch.SendTo(msg.To, from.ID(), outbound(msg))
	// A message nobody received leaves the call where it was, so the sender
	// can retry once the target comes online. Hanging up always sticks.
	if r.Calls != nil && (res.SendTo > 0 || step.to == CallEnded) {
		r.Calls.Commit(step)
	}
	logger.Debug().Int("sent_to", res.SendTo).Msg("relayed")
	return res
}

// Disconnected lets the relay forget calls of an identity that went offline.
func (r *Relay) Disconnected(identity domain.Identity) {
	if r.Calls != nil {
		r.Calls.Forget(identity)
	}
}

// describeSDP lists media sections of an SDP carried either as a bare JSON
// string or as an RTCSessionDescription-like object. Only used for logs.
func describeSDP(payload json.RawMessage) ([]string, bool) {
	var raw string
	if err := json.Unmarshal(payload, &raw); err != nil {
		var desc struct {
			SDP string `json:"sdp"`
		}
		if err := json.Unmarshal(payload, &desc); err != nil {
			return nil, false
		}
		raw = desc.SDP
	}
	if !strings.HasPrefix(raw, "v=") {
		return nil, false
	}
	var sd sdp.SessionDescription
	if err := sd.Unmarshal([]byte(raw)); err != nil {
		return nil, false
	}
	if len(sd.MediaDescriptions) == 0 {
		return nil, false
	}
	media := make([]string, 0, len(sd.MediaDescriptions))
	for _, m := range sd.MediaDescriptions {
		media = append(media, m.MediaName.Media)
	}
	return media, true
}
