package session

import (
	"time"

	"github.com/frahmantamala/backoffice-access/internal/access"
)

type Status int

const (
	StatusUnauthenticated Status = iota
	StatusAuthenticating
	StatusAuthenticated
	// StatusRefreshing keeps serving the previous snapshot until the fetch
	// completes.
	StatusRefreshing
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusRefreshing:
		return "refreshing"
	}
	return "unauthenticated"
}

type Principal struct {
	UserID      int64
	Email       string
	SystemAdmin bool
}

// LoginResult is what the backend answers to a credential exchange.
// GrantsIncluded distinguishes an embedded empty grant list from an omitted
// one; only the latter triggers a separate fetch.
type LoginResult struct {
	Token          string
	RefreshToken   string
	User           Principal
	Grants         []access.GrantRecord
	GrantsIncluded bool
}

// State is one immutable value of the session. The store replaces it as a
// whole; fields are never written after publication.
type State struct {
	Status       Status
	Principal    *Principal
	Token        string
	RefreshToken string
	Snapshot     *access.Snapshot
	// LoadErr is the last permission load failure, cleared by a successful
	// fetch. The snapshot is either empty or the previous one.
	LoadErr   error
	UpdatedAt time.Time

	generation uint64
}

func (s *State) Authenticated() bool {
	return s.Status == StatusAuthenticated || s.Status == StatusRefreshing
}

// Evaluator answers against the published snapshot. An unauthenticated
// state denies everything.
func (s *State) Evaluator() access.Evaluator {
	if s == nil || s.Principal == nil || !s.Authenticated() {
		return access.NewEvaluator(nil, false)
	}
	return access.NewEvaluator(s.Snapshot, s.Principal.SystemAdmin)
}

func (s *State) clone() *State {
	next := *s
	return &next
}
