package app

import (
	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the single entry point transports talk to. It owns no
// transport resources.
type Orchestrator struct {
	Registry *Registry
	Relay    *Relay
	Pipeline *Pipeline
}

// Connect admits conn under its identity.
func (o *Orchestrator) Connect(conn core.Connection) error {
	return o.Registry.Admit(conn.Identity(), conn)
}

// OnSignal relays a call-control message from conn.
func (o *Orchestrator) OnSignal(conn core.Connection, msg domain.SignalingMessage) {
	o.Relay.Forward(conn, msg)
}

// OnAudio schedules an audio job submitted by conn.
func (o *Orchestrator) OnAudio(conn core.Connection, job domain.AudioJob) {
	if o.Pipeline == nil {
		log.Warn().Str("module", "app.orchestrator").Msg("audio pipeline disabled, dropping recording")
		_ = o.Relay.Dispatch.Reply(conn, sttErrorEvent{Type: EventSTTError, Message: "speech translation is not configured"})
		return
	}
	o.Pipeline.HandleAudioJob(conn, job)
}

// OnDisconnect drops conn's binding and, once the identity has no
// connections left, any per-identity state.
func (o *Orchestrator) OnDisconnect(conn core.Connection) {
	if !o.Registry.Remove(conn) {
		return
	}
	id := conn.Identity()
	o.Relay.Disconnected(id)
	if o.Pipeline != nil {
		o.Pipeline.Forget(id)
	}
	log.Info().Str("module", "app.orchestrator").Str("identity", string(id)).Msg("identity offline")
}
