// Package middleware enforces admission decisions at the transport edge,
// for both net/http handlers and gRPC unary calls.
package middleware

import (
	"context"

	"github.com/toolink/throttle/limiter"
)

// decisionKey is the private context key type for stored decisions.
// A private type prevents collisions with other context keys.
type decisionKey struct{}

// withDecision returns a context carrying the admission decision so
// downstream handlers can inspect it.
func withDecision(ctx context.Context, d limiter.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFromContext extracts the admission decision recorded by the
// middleware, if any.
func DecisionFromContext(ctx context.Context) (limiter.Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(limiter.Decision)
	return d, ok
}
