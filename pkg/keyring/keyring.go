package keyring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/backfeedhq/backfeed/internal/options"
	"github.com/backfeedhq/backfeed/pkg/httpclient"
	"github.com/go-resty/resty/v2"
)

// Package keyring holds the credential side of a silo connection: durable
// access tokens and the authenticated request primitive that returns one
// page of a silo API response.

const tokenNamespace = "keyring-tokens"

// ErrTokenNotFound is returned when no token is stored for (service, id).
var ErrTokenNotFound = errors.New("token not found")

// Token is one stored access credential for a remote service.
type Token struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	Secret  string `json:"secret"`
	Display string `json:"display"`
}

// TokenStore persists tokens in the durable option store.
type TokenStore struct {
	store options.Store
}

// NewTokenStore creates a token store over the given option store.
func NewTokenStore(store options.Store) *TokenStore {
	return &TokenStore{store: store}
}

func tokenKey(service, id string) string {
	return service + "/" + id
}

// Get returns the token stored for (service, id).
func (s *TokenStore) Get(service, id string) (Token, error) {
	if strings.TrimSpace(service) == "" || strings.TrimSpace(id) == "" {
		return Token{}, ErrTokenNotFound
	}

	var tok Token
	found, err := s.store.Get(tokenNamespace, tokenKey(service, id), &tok)
	if err != nil {
		return Token{}, fmt.Errorf("read token %s/%s: %w", service, id, err)
	}
	if !found {
		return Token{}, ErrTokenNotFound
	}
	return tok, nil
}

// Save persists the token under (service, id).
func (s *TokenStore) Save(tok Token) error {
	if strings.TrimSpace(tok.Service) == "" || strings.TrimSpace(tok.ID) == "" {
		return fmt.Errorf("token requires service and id")
	}
	return s.store.Set(tokenNamespace, tokenKey(tok.Service, tok.ID), tok)
}

// Delete removes the token stored for (service, id).
func (s *TokenStore) Delete(service, id string) error {
	return s.store.Delete(tokenNamespace, tokenKey(service, id))
}

// Envelope is one page of a silo API response: an element collection plus an
// optional absolute continuation URL.
type Envelope struct {
	Data   []json.RawMessage `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// RemoteError reports a non-2xx response from the remote service.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote rejected request with status %d: %s", e.StatusCode, snippet(e.Body))
}

// Transient reports whether the failure looks temporary; callers surface
// these as a "try again later" advisory instead of dumping the body.
func (e *RemoteError) Transient() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func snippet(body string) string {
	const maxLen = 512
	s := strings.TrimSpace(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// Service issues authenticated requests against one remote silo API.
type Service struct {
	name   string
	client *resty.Client
	token  *Token
}

// NewService creates a service with the given per-request timeout.
func NewService(name string, timeout time.Duration) *Service {
	return &Service{
		name:   name,
		client: httpclient.NewRestyHTTPClient(timeout),
	}
}

// Name returns the remote service name (e.g. "facebook").
func (s *Service) Name() string { return s.name }

// SetToken selects the token applied to subsequent requests.
func (s *Service) SetToken(tok Token) { s.token = &tok }

// ClearToken drops the selected token.
func (s *Service) ClearToken() { s.token = nil }

// Token returns the currently selected token, or nil.
func (s *Service) Token() *Token { return s.token }

// AccessToken returns the selected token's secret, if one is set.
func (s *Service) AccessToken() (string, bool) {
	if s.token == nil || s.token.Secret == "" {
		return "", false
	}
	return s.token.Secret, true
}

// Request fetches one page from the silo API. Transport failures and non-2xx
// statuses are both errors; the latter carry a *RemoteError.
func (s *Service) Request(ctx context.Context, url string) (*Envelope, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("request url is empty")
	}

	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page: %w", s.name, err)
	}
	if resp.IsError() {
		return nil, &RemoteError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var env Envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", s.name, err)
	}
	return &env, nil
}
