package app

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelayFixture(t *testing.T, strict bool) (*Relay, *fakeConn, *fakeConn) {
	t.Helper()
	reg := NewRegistry()
	alice, bob := newFakeConn("a1", "alice"), newFakeConn("b1", "bob")
	admit(t, reg, alice, bob)
	return NewRelay(NewDispatcher(reg, SimplePolicy{}), strict), alice, bob
}

func TestRelayMakeCall(t *testing.T) {
	r, alice, bob := newRelayFixture(t, false)

	res := r.Forward(alice, domain.SignalingMessage{Kind: domain.SignalOffer, To: "bob", Payload: json.RawMessage(`"X"`)})
	assert.Equal(t, 1, res.SendTo)

	ev := bob.events(t)
	require.Len(t, ev, 1)
	assert.Equal(t, map[string]any{"type": "newCall", "callerId": "alice", "sdpOffer": "X"}, ev[0])
	assert.Empty(t, alice.events(t))
}

func TestRelayOutboundShapes(t *testing.T) {
	tests := []struct {
		kind     domain.SignalKind
		payload  string
		expected map[string]any
	}{
		{domain.SignalAnswer, `{"type":"answer","sdp":"v=0"}`, map[string]any{"type": "callAnswered", "callee": "alice", "sdpAnswer": map[string]any{"type": "answer", "sdp": "v=0"}}},
		{domain.SignalIceCandidate, `{"candidate":"c"}`, map[string]any{"type": "IceCandidate", "sender": "alice", "iceCandidate": map[string]any{"candidate": "c"}}},
		{domain.SignalEndCall, ``, map[string]any{"type": "callEnded", "from": "alice"}},
		{domain.SignalVoice, `"blob"`, map[string]any{"type": "playVoice", "from": "alice", "voice": "blob"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			r, alice, bob := newRelayFixture(t, false)
			var payload json.RawMessage
			if tt.payload != "" {
				payload = json.RawMessage(tt.payload)
			}
			r.Forward(alice, domain.SignalingMessage{Kind: tt.kind, To: "bob", Payload: payload})
			ev := bob.events(t)
			require.Len(t, ev, 1)
			assert.Equal(t, tt.expected, ev[0])
		})
	}
}

func TestRelayAbsentTargetIsSilent(t *testing.T) {
	r, alice, _ := newRelayFixture(t, false)
	res := r.Forward(alice, domain.SignalingMessage{Kind: domain.SignalOffer, To: "carol", Payload: json.RawMessage(`"X"`)})
	assert.Equal(t, 0, res.SendTo)
	assert.Empty(t, alice.events(t))
}

func TestRelayPermissiveForwardsOutOfOrder(t *testing.T) {
	r, alice, bob := newRelayFixture(t, false)
	r.Forward(alice, domain.SignalingMessage{Kind: domain.SignalAnswer, To: "bob", Payload: json.RawMessage(`"Y"`)})
	assert.Len(t, bob.events(t), 1)
}

func TestRelayStrictRejects(t *testing.T) {
	r, alice, bob := newRelayFixture(t, true)
	res := r.Forward(alice, domain.SignalingMessage{Kind: domain.SignalAnswer, To: "bob", Payload: json.RawMessage(`"Y"`)})
	assert.Equal(t, 0, res.SendTo)
	assert.Empty(t, bob.events(t))

	ev := alice.events(t)
	require.Len(t, ev, 1)
	assert.Equal(t, "error", ev[0]["type"])
	assert.Contains(t, ev[0]["error"], "invalid call transition")
}

func TestRelayStrictForgetsOnDisconnect(t *testing.T) {
	r, alice, bob := newRelayFixture(t, true)
	r.Forward(alice, domain.SignalingMessage{Kind: domain.SignalOffer, To: "bob", Payload: json.RawMessage(`"X"`)})
	require.Equal(t, CallOffered, r.Calls.State("alice", "bob"))

	r.Disconnected("bob")
	assert.Equal(t, CallIdle, r.Calls.State("alice", "bob"))
	assert.Len(t, bob.events(t), 1)
}

func TestRelayStrictOfflineOfferCanBeRetried(t *testing.T) {
	r, alice, _ := newRelayFixture(t, true)
	offer := domain.SignalingMessage{Kind: domain.SignalOffer, To: "carol", Payload: json.RawMessage(`"X"`)}

	res := r.Forward(alice, offer)
	require.Equal(t, 0, res.SendTo)
	assert.Equal(t, CallIdle, r.Calls.State("alice", "carol"))

	carol := newFakeConn("c1", "carol")
	require.NoError(t, r.Dispatch.Registry.Admit("carol", carol))

	res = r.Forward(alice, offer)
	assert.Equal(t, 1, res.SendTo)
	assert.Equal(t, CallOffered, r.Calls.State("alice", "carol"))
	assert.Len(t, carol.events(t), 1)
	assert.Empty(t, alice.events(t))
}

func TestRelayStrictEndCallToOfflineStillEnds(t *testing.T) {
	r, alice, bob := newRelayFixture(t, true)
	r.Forward(alice, domain.SignalingMessage{Kind: domain.SignalOffer, To: "bob", Payload: json.RawMessage(`"X"`)})
	require.Equal(t, CallOffered, r.Calls.State("alice", "bob"))

	bob.Close()
	res := r.Forward(alice, domain.SignalingMessage{Kind: domain.SignalEndCall, To: "bob"})
	assert.Equal(t, 0, res.SendTo)
	assert.Equal(t, CallIdle, r.Calls.State("alice", "bob"))
}

func TestDescribeSDP(t *testing.T) {
	raw := "v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\nm=audio 9 UDP/TLS/RTP/SAVPF 111\r\nc=IN IP4 0.0.0.0\r\n"
	obj, _ := json.Marshal(map[string]string{"type": "offer", "sdp": raw})
	media, ok := describeSDP(obj)
	require.True(t, ok)
	assert.Equal(t, []string{"audio"}, media)

	_, ok = describeSDP(json.RawMessage(`"X"`))
	assert.False(t, ok)

	noMedia, _ := json.Marshal("v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n")
	_, ok = describeSDP(noMedia)
	assert.False(t, ok)
}
