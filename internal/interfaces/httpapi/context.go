package httpapi

import (
	"context"

	"github.com/allanhy/tallysight-sub000/internal/domain/user"
)

type contextKey string

const (
	principalContextKey  contextKey = "auth_principal"
	routeMatchContextKey contextKey = "route_match"
)

type routeMatch struct {
	pattern string
}

func withRouteMatch(ctx context.Context, m *routeMatch) context.Context {
	return context.WithValue(ctx, routeMatchContextKey, m)
}

func withPrincipal(ctx context.Context, p user.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func principalFromContext(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(user.Principal)
	return p, ok
}
