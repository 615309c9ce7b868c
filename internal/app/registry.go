package app

import (
	"sort"
	"sync"

	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry binds live connections to caller-supplied identities.
// An identity may hold several connections (multi-device); an identity entry
// exists only while at least one of its connections is live.
type Registry struct {
	mu         sync.RWMutex
	identities map[domain.Identity]map[domain.ConnectionID]core.Connection
	owners     map[domain.ConnectionID]domain.Identity
}

func NewRegistry() *Registry {
	return &Registry{
		identities: make(map[domain.Identity]map[domain.ConnectionID]core.Connection),
		owners:     make(map[domain.ConnectionID]domain.Identity),
	}
}

// Admit binds conn under identity. An empty identity is rejected with
// domain.ErrIdentityMissing.
func (r *Registry) Admit(identity domain.Identity, conn core.Connection) error {
	if identity == "" {
		return domain.ErrIdentityMissing
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cid := conn.ID()
	if prev, ok := r.owners[cid]; ok && prev != identity {
		r.detachLocked(prev, cid)
	}
	set, ok := r.identities[identity]
	if !ok {
		set = make(map[domain.ConnectionID]core.Connection)
		r.identities[identity] = set
	}
	set[cid] = conn
	r.owners[cid] = identity
	log.Info().Str("module", "app.registry").Str("identity", string(identity)).Str("cid", string(cid)).Int("devices", len(set)).Msg("admitted connection")
	return nil
}

// Lookup returns a snapshot of the connections bound to identity.
// Unknown identities yield an empty slice.
func (r *Registry) Lookup(identity domain.Identity) []core.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.identities[identity]
	out := make([]core.Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Remove unbinds conn. It reports whether its identity went offline, i.e.
// conn was the identity's last connection. Removing twice is a no-op.
func (r *Registry) Remove(conn core.Connection) (offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cid := conn.ID()
	identity, ok := r.owners[cid]
	if !ok {
		return false
	}
	offline = r.detachLocked(identity, cid)
	log.Info().Str("module", "app.registry").Str("identity", string(identity)).Str("cid", string(cid)).Bool("offline", offline).Msg("removed connection")
	return offline
}

func (r *Registry) detachLocked(identity domain.Identity, cid domain.ConnectionID) bool {
	delete(r.owners, cid)
	set, ok := r.identities[identity]
	if !ok {
		return false
	}
	delete(set, cid)
	if len(set) == 0 {
		delete(r.identities, identity)
		return true
	}
	return false
}

// Online returns the number of identities with at least one live connection.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}

// Identities lists online identities in lexical order.
func (r *Registry) Identities() []domain.Identity {
	r.mu.RLock()
	out := make([]domain.Identity, 0, len(r.identities))
	for id := range r.identities {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
