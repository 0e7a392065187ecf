// Package auth handles OAuth2 client configuration, token persistence and
// refresh for the Gmail provider.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrTokenNotSet indicates no OAuth token is available.
	ErrTokenNotSet = errors.New("no token defined")
	// ErrTokenRefresh indicates the stored token could not be refreshed.
	ErrTokenRefresh = errors.New("token refresh failed")
)

const stateTTL = 5 * time.Minute

// Token manages OAuth2 tokens with thread-safe operations.
type Token struct {
	mu          sync.RWMutex
	cfg         *oauth2.Config
	token       *oauth2.Token
	persistPath string
	stateStore  map[string]time.Time
	logger      *slog.Logger
}

// NewToken creates a Token manager, loading from disk if path provided.
func NewToken(cfg *oauth2.Config, persistPath string, logger *slog.Logger) (*Token, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := &Token{
		cfg:         cfg,
		persistPath: persistPath,
		stateStore:  make(map[string]time.Time),
		logger:      logger,
	}
	if persistPath == "" {
		return t, nil
	}

	raw, err := os.ReadFile(persistPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("token file doesn't exist, it will be created after authorization", slog.String("path", persistPath))
			return t, nil
		}
		return nil, fmt.Errorf("os.ReadFile failed: %w", err)
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}
	t.token = token

	return t, nil
}

// RedirectURL generates the OAuth2 authorization URL with a secure random state.
func (t *Token) RedirectURL() (string, error) {
	state, err := t.generateState()
	if err != nil {
		return "", fmt.Errorf("generateState failed: %w", err)
	}

	return t.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

func (t *Token) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.stateStore[state] = now.Add(stateTTL)

	for s, exp := range t.stateStore {
		if exp.Before(now) {
			delete(t.stateStore, s)
		}
	}

	return state, nil
}

func (t *Token) validateState(state string) bool {
	if state == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	expiry, exists := t.stateStore[state]
	if !exists {
		return false
	}

	delete(t.stateStore, state)

	return !time.Now().After(expiry)
}

// AuthorizeCode exchanges an authorization code for a token after
// validating state, then persists it.
func (t *Token) AuthorizeCode(ctx context.Context, code string, state string) error {
	if !t.validateState(state) {
		return errors.New("invalid or expired state parameter")
	}

	tok, err := t.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	t.setToken(tok)

	if err := t.Persist(); err != nil {
		return fmt.Errorf("t.Persist failed: %w", err)
	}

	return nil
}

// OAuthToken returns the current OAuth2 token.
func (t *Token) OAuthToken() (*oauth2.Token, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.token == nil {
		return nil, ErrTokenNotSet
	}

	return t.token, nil
}

// TokenSource returns a source that refreshes the stored token when it
// expires and keeps the refreshed token for the next Persist.
func (t *Token) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := t.OAuthToken()
	if err != nil {
		return nil, err
	}

	return &storingSource{
		owner: t,
		src:   t.cfg.TokenSource(ctx, tok),
	}, nil
}

func (t *Token) setToken(tok *oauth2.Token) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.token = tok
}

// Persist saves the token to disk.
func (t *Token) Persist() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.persistPath == "" || t.token == nil {
		return nil
	}

	if dir := filepath.Dir(t.persistPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("os.MkdirAll failed: %w", err)
		}
	}

	raw, err := json.Marshal(t.token)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	if err := os.WriteFile(t.persistPath, raw, 0o600); err != nil {
		return fmt.Errorf("os.WriteFile failed: %w", err)
	}

	return nil
}

type storingSource struct {
	owner *Token
	src   oauth2.TokenSource
}

func (s *storingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenRefresh, err)
	}

	current, _ := s.owner.OAuthToken()
	if current == nil || current.AccessToken != tok.AccessToken {
		s.owner.logger.Info("oauth token refreshed", slog.Time("expiry", tok.Expiry))
		s.owner.setToken(tok)
	}

	return tok, nil
}
