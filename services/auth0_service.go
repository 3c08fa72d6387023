package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kendall-kelly/bakery-orders-api/config"
)

// ErrSubjectMismatch means /userinfo described a different user than the token subject
var ErrSubjectMismatch = errors.New("auth0 userinfo subject does not match the token")

// Auth0UserInfo represents the user information returned from Auth0's /userinfo endpoint
type Auth0UserInfo struct {
	Sub   string `json:"sub"` // Auth0 user ID
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Auth0Error is a non-200 answer from Auth0
type Auth0Error struct {
	StatusCode int
	Body       string
}

func (e *Auth0Error) Error() string {
	return fmt.Sprintf("userinfo endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Unauthorized reports whether Auth0 rejected the access token itself
func (e *Auth0Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Auth0Service handles interactions with Auth0 API
type Auth0Service struct {
	userInfoURL string
	httpClient  *http.Client
}

// NewAuth0Service creates a client for the tenant in cfg.Auth0Domain.
// A domain with a scheme is used as is, which lets tests point it at a local server.
func NewAuth0Service(cfg *config.Config) *Auth0Service {
	base := cfg.Auth0Domain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Auth0Service{
		userInfoURL: strings.TrimSuffix(base, "/") + "/userinfo",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetUserInfo fetches the profile behind an access token
func (s *Auth0Service) GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &Auth0Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var userInfo Auth0UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return &userInfo, nil
}

// ProfileFor fetches the profile of subject and checks the token really belongs to it
func (s *Auth0Service) ProfileFor(ctx context.Context, subject, accessToken string) (*Auth0UserInfo, error) {
	info, err := s.GetUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if info.Sub != subject {
		return nil, ErrSubjectMismatch
	}
	return info, nil
}
