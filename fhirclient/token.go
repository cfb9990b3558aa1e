package fhirclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenLeeway is subtracted from a token's expiry before it is refreshed.
const tokenLeeway = 30 * time.Second

// TokenSource obtains OAuth2 client-credentials bearer tokens and reuses a
// token until shortly before it expires.
type TokenSource struct {
	httpClient   *http.Client
	endpoint     string
	clientID     string
	clientSecret string
	now          func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource creates a TokenSource for the given token endpoint.
func NewTokenSource(httpClient *http.Client, endpoint, clientID, clientSecret string) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &TokenSource{
		httpClient:   httpClient,
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns a valid access token, fetching a new one when needed.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && (s.expires.IsZero() || s.now().Before(s.expires.Add(-tokenLeeway))) {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newStatusError(resp, s.endpoint)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response from %s has no access_token", s.endpoint)
	}

	s.token = tr.AccessToken
	s.expires = s.expiry(tr)
	return s.token, nil
}

// expiry prefers the exp claim of a JWT access token and falls back to
// expires_in. A zero time means the token does not expire.
func (s *TokenSource) expiry(tr tokenResponse) time.Time {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if tok, _, err := parser.ParseUnverified(tr.AccessToken, jwt.MapClaims{}); err == nil {
		if exp, err := tok.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if tr.ExpiresIn > 0 {
		return s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return time.Time{}
}
