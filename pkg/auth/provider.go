package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"livechat/pkg/logger"
	"livechat/pkg/models"
)

// Rejection is a definitive "no" from the credential provider (bad password,
// duplicate username, policy violation). It is not retryable, unlike
// ErrUnavailable.
type Rejection struct {
	Status int
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("provider rejected request (%d): %s", r.Status, r.Reason)
}

// Provider is the external credential-issuance capability: account creation
// and password login. The core never stores credentials itself.
type Provider struct {
	registerURL string
	tokenURL    string
	clientID    string
	client      *http.Client
}

// NewProvider returns a Provider talking to the configured identity service.
// A zero timeout defaults to 10s; a timeout is treated like an outage.
func NewProvider(registerURL, tokenURL, clientID string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		registerURL: registerURL,
		tokenURL:    tokenURL,
		clientID:    clientID,
		client:      &http.Client{Timeout: timeout},
	}
}

// Register creates an account with the identity provider.
func (p *Provider) Register(ctx context.Context, username, password, email string) error {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.registerURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		logger.Info("user_registered", "user", username)
		return nil
	}
	if res.StatusCode >= 500 {
		return fmt.Errorf("%w: provider returned %d", ErrUnavailable, res.StatusCode)
	}
	return &Rejection{Status: res.StatusCode, Reason: readReason(res.Body)}
}

// Login performs a password-grant token request and returns the issued token
// triple. A provider outage is ErrUnavailable; bad credentials are
// ErrUnauthenticated.
func (p *Provider) Login(ctx context.Context, username, password string) (models.AuthTokens, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", p.clientID)
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return models.AuthTokens{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := p.client.Do(req)
	if err != nil {
		return models.AuthTokens{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 500 {
		return models.AuthTokens{}, fmt.Errorf("%w: provider returned %d", ErrUnavailable, res.StatusCode)
	}
	if res.StatusCode != http.StatusOK {
		logger.Warn("login_rejected", "user", username, "status", res.StatusCode)
		return models.AuthTokens{}, fmt.Errorf("%w: provider returned %d", ErrUnauthenticated, res.StatusCode)
	}
	var tok struct {
		AccessToken  string `json:"access_token"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return models.AuthTokens{}, fmt.Errorf("%w: invalid token response: %v", ErrUnavailable, err)
	}
	logger.Info("user_logged_in", "user", username)
	return models.AuthTokens{
		AccessToken:  tok.AccessToken,
		IDToken:      tok.IDToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}, nil
}

func readReason(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "rejected"
	}
	return s
}
