package auth

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"livechat/pkg/logger"
	"livechat/pkg/utils"
)

// GatewayConfig drives the authentication gateway: CORS, rate limiting, role
// mapping and which paths bypass authentication entirely.
type GatewayConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	RolePrefix     string
	// OpenPaths are served without a credential (registration, login, ops
	// probes). Matching is exact; entries ending in a slash match as
	// prefixes so doc trees stay open.
	OpenPaths map[string]struct{}
}

// Middleware authenticates every request outside OpenPaths: it extracts the
// bearer credential, calls the verification capability exactly once (no
// retries), maps the external group claims to application roles and attaches
// the resulting AuthContext for downstream handlers. It fails closed: no
// credential or a bad one is 401; an unreachable provider is 503 so clients
// can tell "log in again" from "try again".
func Middleware(cfg GatewayConfig, verifier Verifier) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)

			// cors preflight
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if pathOpen(cfg.OpenPaths, r.URL.Path) {
				if !limiters.Allow(clientIP(r)) {
					utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				logger.Warn("request_unauthenticated", "reason", "missing_bearer", "path", r.URL.Path, "remote", r.RemoteAddr)
				utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			ident, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, ErrUnavailable) {
					logger.Error("auth_provider_unavailable", "path", r.URL.Path, "error", err)
					utils.JSONError(w, http.StatusServiceUnavailable, "auth unavailable")
					return
				}
				logger.Warn("request_unauthenticated", "reason", "invalid_token", "path", r.URL.Path, "error", err)
				utils.JSONError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			if !limiters.Allow(ident.Subject) {
				utils.JSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				logger.Warn("rate_limited", "user", ident.Subject, "path", r.URL.Path)
				return
			}

			ac := AuthContext{Subject: ident.Subject, Roles: MapGroups(cfg.RolePrefix, ident.Groups)}
			logger.Debug("request_authenticated", "user", ac.Subject, "roles", len(ac.Roles), "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
		})
	}
}

func pathOpen(open map[string]struct{}, p string) bool {
	if _, ok := open[p]; ok {
		return true
	}
	for o := range open {
		if strings.HasSuffix(o, "/") && strings.HasPrefix(p, o) {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
