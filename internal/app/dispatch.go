package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats of one fan-out.
type PublishResult struct {
	SendTo  int
	Dropped []core.Connection
}

// Dispatcher encodes outbound events and fans them out to the connections of
// an identity. Delivery is best effort: an absent identity is a silent no-op.
type Dispatcher struct {
	Registry *Registry
	Policy   Policy
}

func NewDispatcher(reg *Registry, policy Policy) *Dispatcher {
	return &Dispatcher{Registry: reg, Policy: policy}
}

// SendTo delivers v to every connection bound to identity except skip.
func (d *Dispatcher) SendTo(identity domain.Identity, skip domain.ConnectionID, v any) PublishResult {
	conns := d.Registry.Lookup(identity)
	if len(conns) == 0 {
		log.Debug().Str("module", "app.dispatch").Str("to", string(identity)).Msg("target offline, dropped")
		return PublishResult{}
	}
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Msg("marshal outbound event")
		return PublishResult{}
	}

	res := PublishResult{}
	for _, c := range conns {
		if c.ID() == skip {
			continue
		}
		if err := c.TrySend(frame); err != nil {
			if !isClosed(err) {
				res.Dropped = append(res.Dropped, c)
			}
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.dispatch").Str("to", string(identity)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("fan-out result")
	d.applyPolicy(res.Dropped)
	return res
}

// Reply delivers v to a single connection.
func (d *Dispatcher) Reply(conn core.Connection, v any) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := conn.TrySend(frame); err != nil {
		if !isClosed(err) {
			d.applyPolicy([]core.Connection{conn})
		}
		return err
	}
	return nil
}

func (d *Dispatcher) applyPolicy(dropped []core.Connection) {
	if d.Policy == nil {
		return
	}
	for _, c := range dropped {
		switch d.Policy.OnBackPressure(c) {
		case KickConnection:
			log.Warn().Str("module", "app.dispatch").Str("identity", string(c.Identity())).Str("cid", string(c.ID())).Msg("kicking slow connection")
			// The read pump notices the close and removes the binding.
			c.Close()
		case DropFrame, NoAction:
		}
	}
}

// isClosed reports whether a TrySend failure came from an already closed
// connection rather than a full queue.
func isClosed(err error) bool { return errors.Is(err, core.ErrConnClosed) }
