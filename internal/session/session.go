// ABOUTME: Session container holding the auth token, profile, and external identity
// ABOUTME: Login, profile fetch, and logout drive identity resolution and container resync

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/storefront/internal/identity"
	"github.com/2389/storefront/internal/resync"
	"github.com/2389/storefront/internal/scoped"
	"github.com/2389/storefront/internal/store"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a token and none is held.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSuperseded is returned by FetchProfile when a later login, logout, or
	// profile request made its response stale. The response is discarded.
	ErrSuperseded = errors.New("profile response superseded")
)

// Status is the state of the last auth request.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Snapshot is a copy of the session state.
type Snapshot struct {
	Token    string
	Profile  *identity.Profile
	External *identity.ExternalUser
	Status   Status
	Error    string
}

// Authenticated reports whether a token is held.
func (s Snapshot) Authenticated() bool {
	return s.Token != ""
}

// Backend is the subset of the API client the session uses.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Profile(ctx context.Context, token string) (*identity.Profile, error)
}

// Syncer resolves the identity key and reloads containers.
type Syncer interface {
	Sync(ctx context.Context, s identity.State, trigger resync.Trigger) identity.Key
	Reload(ctx context.Context, trigger resync.Trigger)
}

// KeyRecoverer restores the identity key persisted by a previous run.
type KeyRecoverer interface {
	Recover(ctx context.Context, hasToken bool) identity.Key
}

// Session owns the auth state. Every transition that can change the
// identity key ends with a resync, performed while the session lock is held
// so transitions and their resyncs cannot interleave.
type Session struct {
	backend   Backend
	acc       *scoped.Accessor
	syncer    Syncer
	recoverer KeyRecoverer
	logger    *slog.Logger

	mu       sync.RWMutex
	token    string
	profile  *identity.Profile
	external *identity.ExternalUser
	status   Status
	err      string

	// seq tags profile requests; only a response carrying the current tag is applied.
	seq uint64
}

// New creates a signed-out session. Call Restore to load persisted credentials.
func New(backend Backend, acc *scoped.Accessor, syncer Syncer, recoverer KeyRecoverer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		backend:   backend,
		acc:       acc,
		syncer:    syncer,
		recoverer: recoverer,
		logger:    logger.With("component", "session"),
		status:    StatusIdle,
	}
}

// Restore loads the persisted token and external identity, recovers the
// identity key they were last resolved to, and reloads every container
// under it. The profile is not fetched; call FetchProfile for that.
func (s *Session) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = s.acc.ReadString(ctx, store.SlotToken)
	s.external = nil
	if s.token != "" {
		var u identity.ExternalUser
		if s.acc.ReadGlobal(ctx, store.SlotExternalUser, &u) {
			s.external = &u
		}
	}
	s.profile = nil
	s.status = StatusIdle
	s.err = ""

	key := s.recoverer.Recover(ctx, s.token != "")
	s.syncer.Reload(ctx, resync.TriggerStartup)
	s.logger.Info("session restored", "identity", key, "authenticated", s.token != "")
}

// Login exchanges credentials for a token, persists it, resyncs, and then
// fetches the profile. A failed profile fetch keeps the token; its error is
// returned so the caller can retry with FetchProfile.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	s.status = StatusLoading
	s.err = ""
	s.mu.Unlock()

	token, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.mu.Lock()
		s.status = StatusFailed
		s.err = err.Error()
		s.mu.Unlock()
		s.logger.Warn("login failed", "email", email, "error", err)
		return fmt.Errorf("logging in: %w", err)
	}

	s.mu.Lock()
	s.seq++
	s.token = token
	s.profile = nil
	s.external = nil
	s.status = StatusSucceeded
	s.acc.WriteString(ctx, store.SlotToken, token)
	s.acc.RemoveGlobal(ctx, store.SlotExternalUser)
	s.syncer.Sync(ctx, s.identityLocked(), resync.TriggerLogin)
	s.mu.Unlock()

	s.logger.Info("logged in", "email", email)
	return s.FetchProfile(ctx)
}

// LoginWithCredential signs in with an external identity provider
// credential. The credential itself is kept as the session token and its
// claims as the external identity, which determines the identity key.
func (s *Session) LoginWithCredential(ctx context.Context, credential string) error {
	user, err := identity.DecodeCredential(credential)
	if err != nil {
		s.mu.Lock()
		s.status = StatusFailed
		s.err = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.token = credential
	s.external = user
	s.profile = nil
	s.status = StatusSucceeded
	s.err = ""
	s.acc.WriteString(ctx, store.SlotToken, credential)
	s.acc.WriteGlobal(ctx, store.SlotExternalUser, user)
	key := s.syncer.Sync(ctx, s.identityLocked(), resync.TriggerLogin)

	s.logger.Info("logged in with external identity", "identity", key)
	return nil
}

// FetchProfile loads the profile for the held token. On success the identity
// key is re-resolved and containers resync. On failure the token is kept and
// the profile stays empty.
//
// If Login, Logout, or another FetchProfile happens while the request is in
// flight, or the token changes, the response is discarded and ErrSuperseded
// is returned.
func (s *Session) FetchProfile(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	if token == "" {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.seq++
	seq := s.seq
	s.status = StatusLoading
	s.mu.Unlock()

	profile, err := s.backend.Profile(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq || token != s.token {
		s.logger.Debug("discarding stale profile response", "seq", seq, "current_seq", s.seq)
		return ErrSuperseded
	}
	if err != nil {
		s.status = StatusFailed
		s.err = err.Error()
		s.logger.Warn("fetching profile failed", "error", err)
		return fmt.Errorf("fetching profile: %w", err)
	}

	s.profile = profile
	s.status = StatusSucceeded
	s.err = ""
	key := s.syncer.Sync(ctx, s.identityLocked(), resync.TriggerProfile)
	s.logger.Info("profile loaded", "identity", key, "email", profile.Email)
	return nil
}

// Logout drops the token and identity, removes their slots, and resyncs so
// containers fall back to the guest namespace. Any profile request still in
// flight is invalidated.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.token = ""
	s.profile = nil
	s.external = nil
	s.status = StatusIdle
	s.err = ""
	s.acc.RemoveGlobal(ctx, store.SlotToken)
	s.acc.RemoveGlobal(ctx, store.SlotExternalUser)
	s.syncer.Sync(ctx, identity.State{}, resync.TriggerLogout)

	s.logger.Info("logged out")
}

// State returns a copy of the session state.
func (s *Session) State() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Token:  s.token,
		Status: s.status,
		Error:  s.err,
	}
	if s.profile != nil {
		p := *s.profile
		snap.Profile = &p
	}
	if s.external != nil {
		u := *s.external
		snap.External = &u
	}
	return snap
}

// Token returns the held token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// APIToken returns the bearer token for the storefront API. A session
// signed in with an external credential holds no API token.
func (s *Session) APIToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.external != nil {
		return ""
	}
	return s.token
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Identity returns the auth state identity resolution depends on.
func (s *Session) Identity() identity.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identityLocked()
}

func (s *Session) identityLocked() identity.State {
	return identity.State{
		Token:    s.token,
		Profile:  s.profile,
		External: s.external,
	}
}
