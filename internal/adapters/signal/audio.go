package signal

import (
	"encoding/json"

	"github.com/dkeye/VoiceBridge/internal/domain"
)

func (ctl *SignalWSController) handleAudioRecording(c *WsSignalConn, data []byte) {
	var req struct {
		To       string `json:"to"`
		Audio    string `json:"audio"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	// An invalid target still runs the job; delivery is a no-op.
	target, _ := domain.ParseIdentity(req.To)
	ctl.Orch.OnAudio(c, domain.AudioJob{
		Target:   target,
		RawAudio: req.Audio,
		Language: domain.ParseLanguage(req.Language),
	})
}
