package wallet

import (
	"sync"

	"go.uber.org/zap"
)

// Session is the process-wide auth state: at most one capability per provider
// kind, scoped to the authenticated user rather than to any single
// transaction. Capabilities are replaced wholesale, never mutated in place;
// every replacement bumps the epoch so in-flight operations can detect a
// wallet switch and fail instead of silently redirecting.
type Session struct {
	mu     sync.RWMutex
	caps   map[ProviderKind]Capability
	epoch  uint64
	logger *zap.Logger
}

func NewSession(logger *zap.Logger) *Session {
	return &Session{
		caps:   make(map[ProviderKind]Capability),
		logger: logger.Named("wallet-session"),
	}
}

// SetCapability installs (or replaces) the capability for its provider kind.
func (s *Session) SetCapability(c Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps[c.Kind()] = c
	s.epoch++
	s.logger.Info("Wallet capability installed",
		zap.String("provider", c.Kind().String()),
		zap.String("address", c.Address()),
		zap.Uint64("epoch", s.epoch))
}

// RemoveCapability drops the capability for the given kind, if any.
func (s *Session) RemoveCapability(kind ProviderKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caps[kind]; !ok {
		return
	}
	delete(s.caps, kind)
	s.epoch++
}

// Clear drops all capabilities (logout).
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = make(map[ProviderKind]Capability)
	s.epoch++
	s.logger.Info("Wallet session cleared", zap.Uint64("epoch", s.epoch))
}

// Epoch returns the current session generation.
func (s *Session) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Resolve returns the single currently-usable capability, preferring a
// delegated session that can sign, then an embedded custodial wallet, then
// any remaining (possibly watch-only) capability. Returns nil when
// unauthenticated; callers must treat that as an expected state, not a
// failure.
func (s *Session) Resolve() Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked()
}

func (s *Session) resolveLocked() Capability {
	if c, ok := s.caps[KindDelegatedSession]; ok && c.CanSign() {
		return c
	}
	if c, ok := s.caps[KindEmbeddedCustodial]; ok {
		return c
	}
	if c, ok := s.caps[KindExternalSigner]; ok {
		return c
	}
	// A delegated capability that cannot sign is still usable for
	// identity and balance display.
	if c, ok := s.caps[KindDelegatedSession]; ok {
		return c
	}
	return nil
}

// Snapshot captures the resolved capability together with the epoch it was
// resolved at. In-flight operations hold the snapshot by value; a later
// wallet switch changes the epoch but never the snapshot.
type Snapshot struct {
	Capability Capability
	Epoch      uint64
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Capability: s.resolveLocked(), Epoch: s.epoch}
}
