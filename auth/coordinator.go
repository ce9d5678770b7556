// Package auth owns the account credential: loading it, refreshing it before
// it expires and handing it to every outbound request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"repodash/apierror"
	"repodash/logger"
)

// ErrNoCredential means no token is configured or stored.
var ErrNoCredential = errors.New("no credential available")

// refreshMargin is how long before expiry a token is refreshed.
const refreshMargin = 5 * time.Minute

// Options configures a Coordinator.
type Options struct {
	Host         string
	ClientID     string
	ClientSecret string
	// StaticToken is a personal access token. It never expires and is never
	// written to TokenFile.
	StaticToken string
	TokenFile   string
	Scopes      []string
}

// Coordinator serializes access to the credential. It implements
// oauth2.TokenSource so the API client can ask it for a token per request.
type Coordinator struct {
	path   string
	scopes []string
	now    func() time.Time

	mu          sync.RWMutex
	config      *oauth2.Config
	token       *oauth2.Token
	staticToken string

	// refreshMu ensures at most one refresh is in flight.
	refreshMu sync.Mutex
}

// NewCoordinator creates a coordinator. Without a client ID, token refresh
// is unavailable until Login supplies one.
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		staticToken: opts.StaticToken,
		path:        opts.TokenFile,
		scopes:      opts.Scopes,
		now:         time.Now,
	}
	if c.scopes == nil {
		c.scopes = []string{"repo", "read:user", "read:org"}
	}
	if opts.ClientID != "" {
		c.config = c.oauthConfig(opts.Host, opts.ClientID, opts.ClientSecret)
	}
	return c
}

func (c *Coordinator) oauthConfig(host, clientID, clientSecret string) *oauth2.Config {
	host = strings.TrimRight(host, "/")
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       c.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:       host + "/login/oauth/authorize",
			TokenURL:      host + "/login/oauth/access_token",
			DeviceAuthURL: host + "/login/device/code",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// LoadTokens reads the stored credential. A static token takes precedence.
func (c *Coordinator) LoadTokens() error {
	c.mu.Lock()
	static := c.staticToken
	if static != "" {
		c.token = &oauth2.Token{AccessToken: static, TokenType: "Bearer"}
	}
	c.mu.Unlock()
	if static != "" {
		return nil
	}
	if c.path == "" {
		return nil
	}
	tok, err := readTokenFile(c.path)
	if err != nil {
		return err
	}
	c.set(tok)
	if tok != nil {
		logger.Debug("Loaded stored credential", zap.Time("expiry", tok.Expiry))
	}
	return nil
}

// HasCredential reports whether a token is held, expired or not.
func (c *Coordinator) HasCredential() bool {
	return c.current() != nil
}

// Token returns a valid token, refreshing it first when it is about to
// expire. It implements oauth2.TokenSource.
func (c *Coordinator) Token() (*oauth2.Token, error) {
	return c.RefreshIfNeeded(context.Background())
}

// RefreshIfNeeded returns the current token, refreshing it when it expires
// within refreshMargin. Concurrent callers share one refresh.
func (c *Coordinator) RefreshIfNeeded(ctx context.Context) (*oauth2.Token, error) {
	tok := c.current()
	if tok == nil {
		return nil, apierror.New(apierror.KindAuth, ErrNoCredential)
	}
	if !c.needsRefresh(tok) {
		return tok, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	tok = c.current()
	if tok == nil {
		return nil, apierror.New(apierror.KindAuth, ErrNoCredential)
	}
	if !c.needsRefresh(tok) {
		return tok, nil
	}

	expired := !tok.Expiry.After(c.now())
	c.mu.RLock()
	config := c.config
	c.mu.RUnlock()
	if config == nil || tok.RefreshToken == "" {
		if expired {
			return nil, apierror.New(apierror.KindAuth, errors.New("credential expired"))
		}
		return tok, nil
	}

	refreshed, err := config.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken}).Token()
	if err != nil {
		logger.Warn("Failed to refresh credential", zap.Error(err))
		if expired {
			return nil, apierror.New(apierror.KindAuth, fmt.Errorf("refresh credential: %w", err))
		}
		return tok, nil
	}

	if err := c.store(refreshed); err != nil {
		logger.Error("Failed to persist refreshed credential", zap.Error(err))
	}
	logger.Info("Refreshed credential", zap.Time("expiry", refreshed.Expiry))
	return refreshed, nil
}

// Login runs the OAuth device flow against host with the given OAuth app.
// prompt is called with the code the user must enter before polling starts.
// The app is kept for later refreshes.
func (c *Coordinator) Login(ctx context.Context, clientID, clientSecret, host string, prompt func(*oauth2.DeviceAuthResponse)) error {
	if clientID == "" {
		return apierror.New(apierror.KindInvalidConfig, errors.New("client_id is required for login"))
	}
	config := c.oauthConfig(host, clientID, clientSecret)

	device, err := config.DeviceAuth(ctx)
	if err != nil {
		return apierror.New(apierror.KindAuth, fmt.Errorf("start device login: %w", err))
	}
	if prompt != nil {
		prompt(device)
	}

	tok, err := config.DeviceAccessToken(ctx, device)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return apierror.New(apierror.KindCanceled, err)
		}
		return apierror.New(apierror.KindAuth, fmt.Errorf("complete device login: %w", err))
	}

	c.mu.Lock()
	c.config = config
	c.mu.Unlock()
	if err := c.store(tok); err != nil {
		return err
	}
	logger.Info("Logged in with device flow")
	return nil
}

// Logout forgets the credential and deletes the token file.
func (c *Coordinator) Logout() error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	c.token = nil
	c.staticToken = ""
	c.mu.Unlock()
	if c.path == "" {
		return nil
	}
	return removeTokenFile(c.path)
}

// RefreshLoop refreshes the credential every interval until ctx is done.
// Failures are logged and retried on the next tick. A non-positive interval
// disables the loop.
func (c *Coordinator) RefreshLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.HasCredential() {
				continue
			}
			if _, err := c.RefreshIfNeeded(ctx); err != nil {
				logger.Debug("Scheduled credential refresh failed", zap.Error(err))
			}
		}
	}
}

func (c *Coordinator) needsRefresh(tok *oauth2.Token) bool {
	return !tok.Expiry.IsZero() && !tok.Expiry.After(c.now().Add(refreshMargin))
}

func (c *Coordinator) current() *oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Coordinator) set(tok *oauth2.Token) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// store installs tok and persists it.
func (c *Coordinator) store(tok *oauth2.Token) error {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	if c.path == "" {
		return nil
	}
	return writeTokenFile(c.path, tok)
}
