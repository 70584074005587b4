// Package registry holds the authoritative in-memory set of Callable
// Descriptors (spec §4.1): a primary table keyed by callable_id, an FQN
// index, and a per-peer index used on session drop/rotation. There is no
// separate lexical index: Search scans a Snapshot.
package registry

import (
	"path/filepath"
	"sync"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/pkg/logging"
)

// Registry is the single mutable shared structure in the broker: writers
// serialize under mu; readers copy a Snapshot under the read lock (a
// writer waits only while that copy is made) and then work on the copy.
type Registry struct {
	mu sync.RWMutex

	byID map[string]brokerapi.Descriptor
	byFQN map[string]string // fqn -> callable_id
	byPeer map[string]map[string]struct{} // peer alias -> callable_ids

	// retired holds callable_ids that once resolved but were superseded
	// (digest rotation) or retired (peer generation rollover). Get on a
	// retired id reports ErrStaleId instead of ErrNotFound.
	retired map[string]struct{}

	// destructivePatterns and allowUnsafe implement the destructive tool
	// denylist (spec §6 policy.destructive_tool_patterns): any descriptor
	// whose FQN or bare name matches a pattern here is upserted with
	// risk_tier forced to destructive, overriding whatever the peer itself
	// declared. allowUnsafe disables the override entirely.
	destructivePatterns []string
	allowUnsafe         bool

	version uint64
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		byID:    make(map[string]brokerapi.Descriptor),
		byFQN:   make(map[string]string),
		byPeer:  make(map[string]map[string]struct{}),
		retired: make(map[string]struct{}),
	}
}

// SetDestructivePolicy installs the destructive tool name denylist applied
// on every subsequent Upsert. Descriptors already registered are not
// retroactively re-evaluated.
func (r *Registry) SetDestructivePolicy(patterns []string, allowUnsafe bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destructivePatterns = patterns
	r.allowUnsafe = allowUnsafe
}

// matchesDestructivePatternLocked reports whether desc's FQN or bare name
// matches a configured destructive-tool glob. Callers must hold mu.
func (r *Registry) matchesDestructivePatternLocked(desc brokerapi.Descriptor) bool {
	if r.allowUnsafe {
		return false
	}
	for _, pattern := range r.destructivePatterns {
		if ok, err := filepath.Match(pattern, desc.FQN); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pattern, desc.Name); err == nil && ok {
			return true
		}
	}
	return false
}

// Upsert registers or replaces a descriptor. If a descriptor with the same
// FQN already exists under a different schema_digest (hence a different
// callable_id), the prior binding is fully replaced and its callable_id is
// retired (subsequent Get calls on it report ErrStaleId). There is no
// partial registration: this either fully replaces or returns an error
// without mutating state.
func (r *Registry) Upsert(desc brokerapi.Descriptor) error {
	if desc.CallableID == "" {
		return brokerapi.NewError(brokerapi.ErrProtocolError, "descriptor missing callable_id")
	}
	if desc.FQN == "" {
		return brokerapi.NewError(brokerapi.ErrProtocolError, "descriptor missing fqn")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prevID, exists := r.byFQN[desc.FQN]; exists && prevID != desc.CallableID {
		r.retireLocked(prevID)
	}

	if r.matchesDestructivePatternLocked(desc) {
		logging.Warn("Registry", "forcing risk_tier=destructive for %s (matched denylist)", desc.FQN)
		desc.RiskTier = brokerapi.RiskDestructive
	}

	r.byID[desc.CallableID] = desc.Clone()
	r.byFQN[desc.FQN] = desc.CallableID
	delete(r.retired, desc.CallableID)

	if desc.Source.PeerAlias != "" {
		set, ok := r.byPeer[desc.Source.PeerAlias]
		if !ok {
			set = make(map[string]struct{})
			r.byPeer[desc.Source.PeerAlias] = set
		}
		set[desc.CallableID] = struct{}{}
	}

	r.version++
	logging.Debug("Registry", "upserted %s (fqn=%s)", desc.CallableID, desc.FQN)
	return nil
}

// retireLocked marks id as superseded; callers must hold mu.
func (r *Registry) retireLocked(id string) {
	delete(r.byID, id)
	r.retired[id] = struct{}{}
	for _, set := range r.byPeer {
		delete(set, id)
	}
}

// Remove deletes a descriptor addressed by callable_id or FQN. It does not
// retire the id for StaleId purposes (an explicit delete is a NotFound
// going forward, matching manage.delete's idempotent-but-NotFound-on-
// second-call contract).
func (r *Registry) Remove(idOrFQN string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := idOrFQN
	if resolved, ok := r.byFQN[idOrFQN]; ok {
		id = resolved
	}

	desc, ok := r.byID[id]
	if !ok {
		return brokerapi.NewError(brokerapi.ErrNotFound, "no such callable: "+idOrFQN)
	}

	delete(r.byID, id)
	delete(r.byFQN, desc.FQN)
	delete(r.retired, id)
	if desc.Source.PeerAlias != "" {
		if set, ok := r.byPeer[desc.Source.PeerAlias]; ok {
			delete(set, id)
		}
	}
	r.version++
	return nil
}

// RemovePeer retires every descriptor owned by peerAlias, e.g. when a
// session leaves Ready at a given generation. Retired ids resolve to
// ErrStaleId rather than ErrNotFound, per spec §4.2.
func (r *Registry) RemovePeer(peerAlias string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.byPeer[peerAlias]
	if !ok {
		return
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if desc, ok := r.byID[id]; ok {
			delete(r.byFQN, desc.FQN)
		}
		r.retireLocked(id)
	}
	delete(r.byPeer, peerAlias)
	r.version++
	logging.Info("Registry", "retired %d callables for peer %s", len(ids), peerAlias)
}

// Get resolves a callable_id to its descriptor.
func (r *Registry) Get(id string) (brokerapi.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if desc, ok := r.byID[id]; ok {
		return desc.Clone(), nil
	}
	if _, ok := r.retired[id]; ok {
		return brokerapi.Descriptor{}, brokerapi.NewError(brokerapi.ErrStaleId, "callable_id superseded or retired: "+id)
	}
	return brokerapi.Descriptor{}, brokerapi.NewError(brokerapi.ErrNotFound, "no such callable: "+id)
}

// LookupByFQN resolves a fully-qualified name to its current descriptor.
func (r *Registry) LookupByFQN(fqn string) (brokerapi.Descriptor, error) {
	r.mu.RLock()
	id, ok := r.byFQN[fqn]
	r.mu.RUnlock()
	if !ok {
		return brokerapi.Descriptor{}, brokerapi.NewError(brokerapi.ErrNotFound, "no such fqn: "+fqn)
	}
	return r.Get(id)
}

// Snapshot is a cheap, consistent, point-in-time view used by Search and
// the exec resolver. It is safe to read concurrently with ongoing writes:
// the slice is a copy taken under a read lock.
type Snapshot struct {
	Version     uint64
	Descriptors []brokerapi.Descriptor
}

// Snapshot returns a consistent view of every currently-registered
// descriptor.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]brokerapi.Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d.Clone())
	}
	return Snapshot{Version: r.version, Descriptors: out}
}

// ToolFQNs returns the FQNs of every tool-kind descriptor in the snapshot —
// the live universe a skill's tool_policy.required entries are checked
// against.
func (s Snapshot) ToolFQNs() []string {
	out := make([]string, 0, len(s.Descriptors))
	for _, d := range s.Descriptors {
		if d.Kind == brokerapi.KindTool {
			out = append(out, d.FQN)
		}
	}
	return out
}

// Counts reports the aggregate counts used in a search response.
func (s Snapshot) Counts() (total, tools, skills int) {
	for _, d := range s.Descriptors {
		total++
		if d.Kind == brokerapi.KindTool {
			tools++
		} else {
			skills++
		}
	}
	return
}
