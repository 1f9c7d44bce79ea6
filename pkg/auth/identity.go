package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated means the request carried a missing, malformed, expired
// or otherwise invalid credential. The fix is to log in again.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrUnavailable means the verification provider could not be reached (or
// timed out). The credential may be fine; the fix is to try again. The
// gateway never retries on the caller's behalf.
var ErrUnavailable = errors.New("auth provider unavailable")

// Identity is what the external verification capability asserts about a
// token: who the caller is and which external groups they belong to.
type Identity struct {
	Subject string
	Groups  []string
}

// Verifier is the external credential-validation capability. Implementations
// must distinguish a bad credential (ErrUnauthenticated) from their own
// unavailability (ErrUnavailable) so callers can tell "log in again" from
// "try again".
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// AuthContext is the verified identity plus mapped application roles
// attached to each authenticated request. It is derived per request and
// never persisted.
type AuthContext struct {
	Subject string
	Roles   map[string]struct{}
}

// HasRole reports whether the context carries the given application role.
func (a AuthContext) HasRole(role string) bool {
	_, ok := a.Roles[role]
	return ok
}

type ctxAuthKey struct{}

// WithContext attaches the AuthContext to a request context.
func WithContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, ctxAuthKey{}, ac)
}

// FromContext returns the request's AuthContext, if any.
func FromContext(ctx context.Context) (AuthContext, bool) {
	if v := ctx.Value(ctxAuthKey{}); v != nil {
		if ac, ok := v.(AuthContext); ok {
			return ac, true
		}
	}
	return AuthContext{}, false
}

// SubjectFromContext returns the verified caller username or empty string.
func SubjectFromContext(ctx context.Context) string {
	if ac, ok := FromContext(ctx); ok {
		return ac.Subject
	}
	return ""
}
