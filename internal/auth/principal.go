package auth

import (
	"context"

	"github.com/frahmantamala/backoffice-access/internal/access"
)

// Principal is the authenticated caller of one request.
type Principal struct {
	UserID      int64
	Email       string
	SystemAdmin bool
	Snapshot    *access.Snapshot
}

func (p *Principal) Evaluator() access.Evaluator {
	return access.NewEvaluator(p.Snapshot, p.SystemAdmin)
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
