package app

import "github.com/dkeye/VoiceBridge/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickConnection
)

// Policy decides what happens to a connection whose outbound queue is full.
type Policy interface {
	OnBackPressure(conn core.Connection) BackpressureAction
}

// SimplePolicy kicks slow connections; the peer reconnects and re-admits.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.Connection) BackpressureAction {
	return KickConnection
}

// LenientPolicy only drops the frame that did not fit.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(core.Connection) BackpressureAction {
	return DropFrame
}

// PolicyByName maps a config value onto a Policy.
func PolicyByName(name string) Policy {
	if name == "drop" {
		return LenientPolicy{}
	}
	return SimplePolicy{}
}
