package signal

import (
	"encoding/json"

	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) forward(c *WsSignalConn, kind domain.SignalKind, to string, payload json.RawMessage) {
	target, err := domain.ParseIdentity(to)
	if err != nil {
		// Unknown target: nothing to deliver to.
		log.Debug().Str("module", "signal").Str("kind", kind.String()).Str("from", string(c.identity)).Msg("no target")
		return
	}
	ctl.Orch.OnSignal(c, domain.SignalingMessage{
		Kind:    kind,
		To:      target,
		Payload: payload,
	})
}

func (ctl *SignalWSController) handleMakeCall(c *WsSignalConn, data []byte) {
	var req struct {
		CalleeID string          `json:"calleeId"`
		SDPOffer json.RawMessage `json:"sdpOffer"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.forward(c, domain.SignalOffer, req.CalleeID, req.SDPOffer)
}

func (ctl *SignalWSController) handleAnswerCall(c *WsSignalConn, data []byte) {
	var req struct {
		CallerID  string          `json:"callerId"`
		SDPAnswer json.RawMessage `json:"sdpAnswer"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.forward(c, domain.SignalAnswer, req.CallerID, req.SDPAnswer)
}

func (ctl *SignalWSController) handleIceCandidate(c *WsSignalConn, data []byte) {
	var req struct {
		CalleeID     string          `json:"calleeId"`
		ICECandidate json.RawMessage `json:"iceCandidate"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.forward(c, domain.SignalIceCandidate, req.CalleeID, req.ICECandidate)
}

func (ctl *SignalWSController) handleEndCall(c *WsSignalConn, data []byte) {
	var req struct {
		CalleeID string `json:"calleeId"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.forward(c, domain.SignalEndCall, req.CalleeID, nil)
}

func (ctl *SignalWSController) handleVoice(c *WsSignalConn, data []byte) {
	var req struct {
		To    string          `json:"to"`
		Voice json.RawMessage `json:"voice"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.forward(c, domain.SignalVoice, req.To, req.Voice)
}
