package upstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	"github.com/giantswarm/brokerd/internal/registry"
	"github.com/giantswarm/brokerd/pkg/logging"
)

// Multiplexer owns one Session per configured peer, drives each through
// its state machine, and keeps the Registry's view of peer tools current.
type Multiplexer struct {
	reg *registry.Registry

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New constructs a Multiplexer bound to reg. Registry mutation on session
// transitions (upsert on Ready, retire-all on generation rollover) is the
// multiplexer's responsibility per spec §4.2.
func New(reg *registry.Registry) *Multiplexer {
	return &Multiplexer{
		reg:      reg,
		sessions: make(map[string]*Session),
	}
}

// Start connects every configured peer concurrently and runs each
// session's connect/serve/reconnect loop; it returns only once every loop
// has ended (ctx cancelled, or a peer pinned Failed after MaxAttempts). A
// peer that fails initial connection is left in its Starting→backoff loop
// rather than failing the whole broker, since other peers and local
// skills remain usable.
func (m *Multiplexer) Start(ctx context.Context, peers []PeerConfig) error {
	m.mu.Lock()
	for _, cfg := range peers {
		m.sessions[cfg.Alias] = newSession(cfg)
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, cfg := range peers {
		cfg := cfg
		g.Go(func() error {
			m.runSession(gctx, m.sessionFor(cfg.Alias))
			return nil
		})
	}
	return g.Wait()
}

func (m *Multiplexer) sessionFor(alias string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[alias]
}

// runSession drives one session's connect/serve/reconnect loop until ctx
// is cancelled. It returns once the session is Closed or permanently
// Failed, or ctx is done.
func (m *Multiplexer) runSession(ctx context.Context, s *Session) {
	for {
		select {
		case <-ctx.Done():
			m.closeSession(s)
			return
		default:
		}

		if err := m.connectOnce(ctx, s); err != nil {
			from, gen := s.transition(StateFailed, err)
			logging.Warn("Upstream", "peer %s failed to connect (was %s, gen %d): %v", s.cfg.Alias, from, gen, err)
			if s.cfg.Alias != "" {
				m.reg.RemovePeer(s.cfg.Alias)
			}

			if s.cfg.MaxAttempts > 0 && s.attemptsSnapshot() >= s.cfg.MaxAttempts {
				logging.Error("Upstream", err, "peer %s exceeded max-attempts, pinned Failed", s.cfg.Alias)
				return
			}

			backoff := calculateBackoff(s.cfg.InitialBackoff, s.cfg.MaxBackoff, s.attemptsSnapshot())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}

		// Ready: serve health checks until the session drops.
		m.serveUntilDegraded(ctx, s)

		select {
		case <-ctx.Done():
			m.closeSession(s)
			return
		default:
		}
	}
}

func (s *Session) attemptsSnapshot() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

func (m *Multiplexer) connectOnce(ctx context.Context, s *Session) error {
	s.transition(StateStarting, nil)

	var c Client
	switch s.cfg.Transport {
	case TransportStdio:
		c = NewStdioClient(s.cfg.Command, s.cfg.Args, s.cfg.Env)
	case TransportHTTP:
		headers := s.cfg.Headers
		if s.cfg.BearerEnvVar != "" {
			headers = withBearerHeader(headers, s.cfg.BearerEnvVar)
		}
		c = NewHTTPClient(s.cfg.URL, headers)
	default:
		return fmt.Errorf("peer %s: unknown transport %q", s.cfg.Alias, s.cfg.Transport)
	}

	if err := c.Initialize(ctx); err != nil {
		return err
	}

	s.setClient(c)
	_, gen := s.transition(StateReady, nil)

	if err := m.enumerate(ctx, s, gen); err != nil {
		return err
	}
	logging.Info("Upstream", "peer %s ready (generation %d)", s.cfg.Alias, gen)
	return nil
}

// enumerate lists the peer's tools and upserts descriptors tagged with the
// session's current generation.
func (m *Multiplexer) enumerate(ctx context.Context, s *Session, generation uint64) error {
	c := s.getClient()
	tools, err := c.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("enumerate tools for %s: %w", s.cfg.Alias, err)
	}

	for _, tool := range tools {
		desc := toDescriptor(s.cfg.Alias, generation, tool)
		desc.Tags = append(desc.Tags, s.cfg.Tags...)
		if err := m.reg.Upsert(desc); err != nil {
			logging.Warn("Upstream", "failed to register %s: %v", desc.FQN, err)
		}
	}
	return nil
}

// serveUntilDegraded blocks issuing idle-window health pings until one
// fails, transitioning the session to Degraded and retiring its
// descriptors so in-flight execs against them observe StaleId.
func (m *Multiplexer) serveUntilDegraded(ctx context.Context, s *Session) {
	window := s.cfg.IdleHealthWindow
	if window <= 0 {
		window = 30 * time.Second
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.idleSince() < window {
				continue
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := s.getClient().Ping(pingCtx)
			cancel()
			if err != nil {
				from, gen := s.transition(StateDegraded, err)
				logging.Warn("Upstream", "peer %s health ping failed (was %s, gen %d): %v", s.cfg.Alias, from, gen, err)
				m.reg.RemovePeer(s.cfg.Alias)
				_ = s.getClient().Close()
				return
			}
			s.touch()
		}
	}
}

func (m *Multiplexer) closeSession(s *Session) {
	s.transition(StateClosed, nil)
	if c := s.getClient(); c != nil {
		_ = c.Close()
	}
	m.reg.RemovePeer(s.cfg.Alias)
}

// Call routes a tool invocation to the peer that owns it, failing with
// PeerGone if the session is not Ready or StaleId if the descriptor's
// generation no longer matches the session's current one.
func (m *Multiplexer) Call(ctx context.Context, desc brokerapi.Descriptor, args map[string]interface{}) (string, error) {
	correlationID := uuid.NewString()

	s := m.sessionFor(desc.Source.PeerAlias)
	if s == nil {
		return "", brokerapi.NewError(brokerapi.ErrPeerGone, "unknown peer: "+desc.Source.PeerAlias)
	}
	if s.currentState() != StateReady {
		return "", brokerapi.NewError(brokerapi.ErrPeerGone, "peer not ready: "+desc.Source.PeerAlias)
	}
	if s.currentGeneration() != desc.PeerGeneration {
		return "", brokerapi.NewError(brokerapi.ErrStaleId, "descriptor generation superseded for peer: "+desc.Source.PeerAlias)
	}
	if !s.tryAcquire() {
		return "", brokerapi.NewError(brokerapi.ErrBusy, "peer session at in-flight capacity: "+desc.Source.PeerAlias)
	}
	defer s.release()

	logging.Debug("Upstream", "routing %s (correlation=%s) to peer %s", desc.Source.PeerLocalName, correlationID, desc.Source.PeerAlias)
	result, err := s.getClient().CallTool(ctx, desc.Source.PeerLocalName, args)
	s.touch()
	if err != nil {
		if ctx.Err() != nil {
			return "", brokerapi.Wrap(brokerapi.ErrTimeout, err, "peer call deadline exceeded")
		}
		logging.Warn("Upstream", "peer call failed (correlation=%s): %v", correlationID, err)
		return "", brokerapi.Wrap(brokerapi.ErrExecFailed, err, "peer call failed")
	}
	return renderResult(result), nil
}

// Snapshots returns a point-in-time view of every peer session, for the
// manage meta-tool's status listing.
func (m *Multiplexer) Snapshots() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.snapshot())
	}
	return out
}

func withBearerHeader(headers map[string]string, envVar string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	if tok := lookupEnv(envVar); tok != "" {
		out["Authorization"] = "Bearer " + tok
	}
	return out
}
