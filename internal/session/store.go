package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/frahmantamala/backoffice-access/internal/access"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshTimeout = 10 * time.Second
	// minRefreshDelay keeps an expiry in the past from rescheduling in a
	// tight loop.
	minRefreshDelay = time.Second

	retryInitialDelay = 5 * time.Second
	retryMaxDelay     = 5 * time.Minute
)

// Backend is the authentication server as seen by a session.
type Backend interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Validate resolves the principal behind an existing access token.
	Validate(ctx context.Context, token string) (*Principal, error)
	FetchGrants(ctx context.Context, token string) ([]access.GrantRecord, error)
	Logout(ctx context.Context, token string) error
}

type LoadFailureRecorder interface {
	ObservePermissionLoadFailure()
}

// Store owns the session state. Reads go through an atomic pointer and never
// block; transitions are serialized by mu.
type Store struct {
	backend  Backend
	compiler *access.Compiler
	logger   *slog.Logger
	clock    clockwork.Clock
	recorder LoadFailureRecorder

	refreshTimeout  time.Duration
	refreshInterval time.Duration

	state atomic.Pointer[State]
	group singleflight.Group

	mu         sync.Mutex
	generation uint64
	timer      clockwork.Timer
	// retry spaces out refreshes after a failed fetch. Guarded by mu.
	retry *backoff.ExponentialBackOff
}

type Option func(*Store)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

// WithRefreshInterval enables a periodic refresh in addition to the one
// scheduled at the snapshot's next expiry.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Store) {
		s.refreshInterval = d
	}
}

func WithLoadFailureRecorder(r LoadFailureRecorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

func NewStore(backend Backend, compiler *access.Compiler, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend:        backend,
		compiler:       compiler,
		logger:         logger,
		clock:          clockwork.NewRealClock(),
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry = newRetryBackOff(s.refreshInterval)
	s.state.Store(&State{Status: StatusUnauthenticated, UpdatedAt: s.clock.Now()})
	return s
}

// State returns the currently published state.
func (s *Store) State() *State {
	return s.state.Load()
}

func (s *Store) Evaluator() access.Evaluator {
	return s.state.Load().Evaluator()
}

// Login exchanges credentials and compiles the grants embedded in the answer,
// fetching them when the backend omitted them. A failed fetch still
// authenticates; the state then carries an empty snapshot and LoadErr.
func (s *Store) Login(ctx context.Context, email, password string) (*State, error) {
	gen := s.begin()

	res, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.fail(gen)
		s.logger.Warn("login failed", "email", email, "error", err)
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.establish(ctx, gen, res.Token, res.RefreshToken, &res.User, res.Grants, res.GrantsIncluded)
}

// Restore establishes a session from a token issued earlier.
func (s *Store) Restore(ctx context.Context, token, refreshToken string) (*State, error) {
	gen := s.begin()

	principal, err := s.backend.Validate(ctx, token)
	if err != nil {
		s.fail(gen)
		s.logger.Warn("session restore failed", "error", err)
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return s.establish(ctx, gen, token, refreshToken, principal, nil, false)
}

func (s *Store) establish(ctx context.Context, gen uint64, token, refreshToken string, principal *Principal, grants []access.GrantRecord, included bool) (*State, error) {
	var loadErr error
	if !included {
		grants, loadErr = s.fetch(ctx, token)
		if errors.Is(loadErr, ErrUnauthorized) {
			s.fail(gen)
			return nil, fmt.Errorf("fetch permissions: %w", loadErr)
		}
	}

	snapshot := access.EmptySnapshot()
	if loadErr == nil {
		snapshot = s.compiler.Compile(grants)
	} else {
		s.observeLoadFailure(principal.UserID, loadErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, ErrSessionChanged
	}
	next := &State{
		Status:       StatusAuthenticated,
		Principal:    principal,
		Token:        token,
		RefreshToken: refreshToken,
		Snapshot:     snapshot,
		LoadErr:      loadErr,
		UpdatedAt:    s.clock.Now(),
		generation:   gen,
	}
	s.retry.Reset()
	s.publish(next, loadErr != nil)
	s.logger.Info("session established",
		"user_id", principal.UserID,
		"system_admin", principal.SystemAdmin,
		"modules", snapshot.Matrix.Len(),
		"permissions_loaded", loadErr == nil)
	return next, nil
}

// RefreshPermissions fetches and compiles a fresh snapshot. Concurrent calls
// share one fetch. The previous snapshot serves reads until the result is
// published, and stays in place if the fetch fails. A 401 ends the session.
func (s *Store) RefreshPermissions(ctx context.Context) (*State, error) {
	cur := s.state.Load()
	if !cur.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	key := fmt.Sprintf("refresh-%d", cur.generation)
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx), cur.generation)
	})
	if shared {
		s.logger.Debug("permission refresh coalesced", "user_id", cur.Principal.UserID)
	}
	// A failed fetch still answers with the published state.
	state, _ := v.(*State)
	return state, err
}

func (s *Store) refresh(ctx context.Context, gen uint64) (*State, error) {
	s.mu.Lock()
	cur := s.state.Load()
	if gen != s.generation || !cur.Authenticated() {
		s.mu.Unlock()
		return nil, ErrSessionChanged
	}
	refreshing := cur.clone()
	refreshing.Status = StatusRefreshing
	s.state.Store(refreshing)
	s.mu.Unlock()

	grants, err := s.fetch(ctx, cur.Token)

	s.mu.Lock()
	defer s.mu.Unlock()
	latest := s.state.Load()
	if gen != s.generation || !latest.Authenticated() {
		s.logger.Debug("discarding stale permission refresh", "generation", gen)
		return nil, ErrSessionChanged
	}

	if errors.Is(err, ErrUnauthorized) {
		s.unauthenticate()
		s.logger.Warn("token rejected during refresh, session ended", "user_id", cur.Principal.UserID)
		return nil, ErrUnauthorized
	}

	next := latest.clone()
	next.Status = StatusAuthenticated
	next.UpdatedAt = s.clock.Now()
	if err != nil {
		s.observeLoadFailure(cur.Principal.UserID, err)
		next.LoadErr = err
		s.publish(next, true)
		return next, &PermissionLoadError{Err: err}
	}

	next.Snapshot = s.compiler.Compile(grants)
	next.LoadErr = nil
	s.publish(next, false)
	s.logger.Info("permissions refreshed", "user_id", cur.Principal.UserID, "modules", next.Snapshot.Matrix.Len())
	return next, nil
}

// Logout clears the session locally first, then tells the backend. A backend
// failure is logged and does not restore the session.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	cur := s.state.Load()
	s.unauthenticate()
	s.mu.Unlock()

	if cur.Token == "" {
		return
	}
	if err := s.backend.Logout(ctx, cur.Token); err != nil {
		s.logger.Warn("backend logout failed", "error", err)
	}
}

// InvalidateToken ends the session after any authenticated call answered 401.
func (s *Store) InvalidateToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Load().Status == StatusUnauthenticated {
		return
	}
	s.unauthenticate()
	s.logger.Info("session invalidated")
}

// Close stops the refresh timer without touching the state.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.stopTimer()
	s.state.Store(&State{Status: StatusAuthenticating, UpdatedAt: s.clock.Now(), generation: s.generation})
	return s.generation
}

func (s *Store) fail(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.unauthenticate()
	}
}

func (s *Store) fetch(ctx context.Context, token string) ([]access.GrantRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()
	return s.backend.FetchGrants(ctx, token)
}

func (s *Store) observeLoadFailure(userID int64, err error) {
	s.logger.Error("failed to load permissions", "user_id", userID, "error", err)
	if s.recorder != nil {
		s.recorder.ObservePermissionLoadFailure()
	}
}

// unauthenticate must be called with mu held.
func (s *Store) unauthenticate() {
	s.generation++
	s.stopTimer()
	s.state.Store(&State{Status: StatusUnauthenticated, UpdatedAt: s.clock.Now(), generation: s.generation})
}

// publish stores an authenticated state and schedules its refresh. After a
// failed fetch the next attempt follows the retry backoff instead of the
// snapshot's expiry, which has usually passed already. mu must be held.
func (s *Store) publish(next *State, failed bool) {
	s.state.Store(next)
	s.stopTimer()

	var (
		delay time.Duration
		ok    bool
	)
	if failed {
		delay, ok = s.retry.NextBackOff(), true
	} else {
		s.retry.Reset()
		delay, ok = s.refreshDelay(next)
	}
	if !ok || delay == backoff.Stop {
		return
	}
	gen := next.generation
	s.timer = s.clock.AfterFunc(delay, func() {
		if _, err := s.RefreshPermissions(context.Background()); err != nil && !errors.Is(err, ErrSessionChanged) {
			s.logger.Warn("scheduled permission refresh failed", "generation", gen, "error", err)
		}
	})
	s.logger.Debug("permission refresh scheduled", "in", delay)
}

// refreshDelay picks the earlier of the snapshot's next expiry and the
// periodic interval.
func (s *Store) refreshDelay(st *State) (time.Duration, bool) {
	var (
		delay time.Duration
		ok    bool
	)
	if st.Snapshot != nil && st.Snapshot.NextExpiry != nil {
		delay = st.Snapshot.NextExpiry.Sub(s.clock.Now())
		ok = true
	}
	if s.refreshInterval > 0 && (!ok || s.refreshInterval < delay) {
		delay = s.refreshInterval
		ok = true
	}
	if ok && delay < minRefreshDelay {
		delay = minRefreshDelay
	}
	return delay, ok
}

// newRetryBackOff doubles from retryInitialDelay and never waits longer
// than the periodic interval, when one is set.
func newRetryBackOff(interval time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = retryMaxDelay
	if interval > 0 && interval < retryMaxDelay {
		b.MaxInterval = interval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (s *Store) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
