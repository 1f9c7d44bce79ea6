package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"livechat/pkg/logger"
)

// JWKSVerifier validates bearer JWTs against the identity provider's JWKS
// endpoint. Verification is local once the key set is cached; the background
// refresh keeps it current and picks up rotated keys.
type JWKSVerifier struct {
	jwks      *keyfunc.JWKS
	issuer    string
	roleClaim string
}

// NewJWKSVerifier fetches the provider's key set and returns a verifier.
// roleClaim names the token claim carrying external group membership; a
// dotted path (e.g. "realm_access.roles") descends into nested claims.
func NewJWKSVerifier(jwksURL, issuer, roleClaim string) (*JWKSVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               context.Background(),
		RefreshInterval:   5 * time.Minute,
		RefreshRateLimit:  time.Minute,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("jwks_refresh_failed", "url", jwksURL, "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching JWKS from %s: %v", ErrUnavailable, jwksURL, err)
	}
	logger.Info("jwks_loaded", "url", jwksURL, "issuer", issuer)
	return &JWKSVerifier{jwks: jwks, issuer: issuer, roleClaim: roleClaim}, nil
}

// Verify parses and validates the token, returning the asserted subject and
// external groups. A key set the verifier cannot reach or refresh maps to
// ErrUnavailable; a token signed with a kid the provider has never published
// is a bad credential, as is every other validation failure.
func (v *JWKSVerifier) Verify(_ context.Context, tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc, opts...)
	if err != nil {
		// an unknown kid has already been through a RefreshUnknownKID
		// refresh by the time it surfaces here
		if errors.Is(err, keyfunc.ErrKIDNotFound) {
			return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		if errors.Is(err, jwt.ErrTokenUnverifiable) {
			return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid {
		return Identity{}, ErrUnauthenticated
	}

	subject, _ := claims["preferred_username"].(string)
	if subject == "" {
		subject, _ = claims["sub"].(string)
	}
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: token carries no subject", ErrUnauthenticated)
	}
	return Identity{Subject: subject, Groups: groupsFromClaims(claims, v.roleClaim)}, nil
}

// Close shuts down the JWKS background refresh goroutine.
func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}

// groupsFromClaims extracts the string list at the (possibly dotted) claim
// path. Missing or malformed claims yield no groups; the caller is still
// authenticated, just roleless.
func groupsFromClaims(claims map[string]interface{}, path string) []string {
	var cur interface{} = map[string]interface{}(claims)
	// flat claim names may themselves contain dots or colons, so try the
	// whole path as a single key first
	if m, ok := cur.(map[string]interface{}); ok {
		if v, ok := m[path]; ok {
			return toStrings(v)
		}
	}
	for _, part := range splitDots(path) {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return toStrings(cur)
}

func splitDots(s string) []string {
	var out []string
	cur := ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(s[i])
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func toStrings(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
