// Package service runs the dashboard engine: it owns the session state,
// schedules refresh cycles and exposes the operations of the presentation
// layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"repodash/config"
	"repodash/db"
	"repodash/detail"
	"repodash/logger"
	"repodash/models"
)

// RemoteClient abstracts the remote API operations needed by the engine
// (for testability)
type RemoteClient interface {
	detail.Client

	CurrentUser(ctx context.Context) (models.User, error)
	RepositoryList(ctx context.Context, limit int) ([]models.Repository, error)
	FullRepository(ctx context.Context, owner, name string) (models.Repository, error)
	UserContributionHeatmap(ctx context.Context, username string, r models.DateRange) ([]models.HeatmapCell, error)
	UserActivityEvents(ctx context.Context, username string, scope models.ActivityScope, limit int) ([]models.ActivityEvent, error)
	UserCommitEvents(ctx context.Context, username string, scope models.ActivityScope, limit int) ([]models.CommitSummary, error)
	RateLimitMessage(now time.Time) string
	SearchRepositories(ctx context.Context, query string) ([]models.Repository, error)
	RecentRepositories(ctx context.Context, limit int) ([]models.Repository, error)
}

// Credentials abstracts the credential coordinator
// (for testability)
type Credentials interface {
	HasCredential() bool
	RefreshIfNeeded(ctx context.Context) (*oauth2.Token, error)
	Login(ctx context.Context, clientID, clientSecret, host string, prompt func(*oauth2.DeviceAuthResponse)) error
	Logout() error
	RefreshLoop(ctx context.Context, interval time.Duration)
}

// SnapshotStore abstracts the snapshot cache
// (for testability)
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, s db.Snapshot) error
	LoadSnapshot(ctx context.Context, host string) (*db.Snapshot, error)
	Clear(ctx context.Context, host string) error
}

// SettingsStore abstracts the dashboard settings
type SettingsStore interface {
	Snapshot() config.Dashboard
	AddPinned(fullName string) (bool, error)
	RemovePinned(fullName string) bool
	Hide(fullName string) (bool, error)
	Unhide(fullName string) bool
	Save() error
}

// Engine errors
var (
	ErrLoginFailed = errors.New("login failed")
)

// LoginOptions holds the OAuth application used for interactive login.
type LoginOptions struct {
	ClientID     string
	ClientSecret string
}

// Engine is the dashboard engine.
type Engine struct {
	client   RemoteClient
	creds    Credentials
	settings SettingsStore
	cache    SnapshotStore
	login    LoginOptions
	now      func() time.Time

	session   *Session
	scheduler *Scheduler

	mu       sync.Mutex
	details  map[string]*detail.Aggregator
	stopLoop context.CancelFunc
	loopDone chan struct{}
}

// NewEngine creates an engine. cache may be nil, which disables the
// snapshot cache.
func NewEngine(client RemoteClient, creds Credentials, settings SettingsStore, cache SnapshotStore, login LoginOptions) *Engine {
	e := &Engine{
		client:   client,
		creds:    creds,
		settings: settings,
		cache:    cache,
		login:    login,
		now:      time.Now,
		session:  NewSession(),
		details:  make(map[string]*detail.Aggregator),
	}
	e.scheduler = NewScheduler(e.runScheduled)
	return e
}

// Session returns the observable session.
func (e *Engine) Session() *Session {
	return e.session
}

// Start loads the cached snapshot, starts the credential refresh loop and
// the refresh ticker, and requests the first refresh.
func (e *Engine) Start(ctx context.Context) {
	settings := e.settings.Snapshot()
	e.warmStart(ctx, settings.Host)

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.mu.Lock()
	e.stopLoop = cancel
	e.loopDone = done
	e.mu.Unlock()
	go func() {
		defer close(done)
		e.creds.RefreshLoop(loopCtx, settings.CredentialRefreshInterval)
	}()

	e.scheduler.Configure(settings.RefreshInterval, nil)
	e.scheduler.RequestRefresh(false)

	logger.Info("Engine started",
		zap.String("host", settings.Host),
		zap.Duration("refresh_interval", settings.RefreshInterval),
		zap.Duration("credential_refresh_interval", settings.CredentialRefreshInterval))
}

// Stop cancels all background work and waits for it to return.
func (e *Engine) Stop() {
	e.scheduler.Stop()

	e.mu.Lock()
	cancel, done := e.stopLoop, e.loopDone
	e.stopLoop, e.loopDone = nil, nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	logger.Info("Engine stopped")
}

// RequestRefresh schedules a refresh cycle. See Scheduler.RequestRefresh.
func (e *Engine) RequestRefresh(cancelInFlight bool) bool {
	return e.scheduler.RequestRefresh(cancelInFlight)
}

// Wait blocks until the latest scheduled refresh has returned.
func (e *Engine) Wait() {
	e.scheduler.Wait()
}

func (e *Engine) runScheduled(ctx context.Context) {
	if err := e.Refresh(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("Scheduled refresh failed", zap.Error(err))
	}
}

// warmStart publishes the cached snapshot, marked stale, before the first
// network cycle.
func (e *Engine) warmStart(ctx context.Context, host string) {
	if e.cache == nil || !e.creds.HasCredential() {
		return
	}
	snap, err := e.cache.LoadSnapshot(ctx, host)
	if err != nil {
		if errors.Is(err, db.ErrSnapshotNotFound) {
			logger.Debug("No cached snapshot", zap.String("host", host))
		} else {
			logger.Warn("Failed to load cached snapshot", zap.String("host", host), zap.Error(err))
		}
		return
	}

	e.session.update(func(s models.SessionState) models.SessionState {
		if s.UpdatedAt.After(snap.TakenAt) {
			return s
		}
		s.Repositories = snap.Repositories
		s.Activity = snap.Activity
		s.UpdatedAt = snap.TakenAt
		s.Stale = true
		return s
	})
	logger.Info("Loaded cached snapshot",
		zap.String("host", host),
		zap.String("login", snap.Login),
		zap.Int("repositories", len(snap.Repositories)),
		zap.Time("taken_at", snap.TakenAt))
}

// AddPinned pins fullName and refreshes.
func (e *Engine) AddPinned(fullName string) error {
	changed, err := e.settings.AddPinned(fullName)
	if err != nil {
		return err
	}
	return e.settingsChanged(changed)
}

// RemovePinned unpins fullName and refreshes.
func (e *Engine) RemovePinned(fullName string) error {
	return e.settingsChanged(e.settings.RemovePinned(fullName))
}

// Hide hides fullName and refreshes.
func (e *Engine) Hide(fullName string) error {
	changed, err := e.settings.Hide(fullName)
	if err != nil {
		return err
	}
	return e.settingsChanged(changed)
}

// Unhide unhides fullName and refreshes.
func (e *Engine) Unhide(fullName string) error {
	return e.settingsChanged(e.settings.Unhide(fullName))
}

func (e *Engine) settingsChanged(changed bool) error {
	if !changed {
		return nil
	}
	e.scheduler.RequestRefresh(true)
	if err := e.settings.Save(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// SearchRepositories searches the remote host.
func (e *Engine) SearchRepositories(ctx context.Context, query string) ([]models.Repository, error) {
	return e.client.SearchRepositories(ctx, query)
}

// RecentRepositories returns the repositories the user pushed to last.
func (e *Engine) RecentRepositories(ctx context.Context, limit int) ([]models.Repository, error) {
	return e.client.RecentRepositories(ctx, limit)
}

// Detail returns the detail aggregator of fullName, creating it on first use.
func (e *Engine) Detail(fullName string) (*detail.Aggregator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if agg, ok := e.details[fullName]; ok {
		return agg, nil
	}
	agg, err := detail.New(e.client, fullName, detail.DefaultLimit)
	if err != nil {
		return nil, err
	}
	e.details[fullName] = agg
	return agg, nil
}

// Login runs the interactive login flow. prompt receives the code the user
// has to enter on the host.
func (e *Engine) Login(ctx context.Context, prompt func(*oauth2.DeviceAuthResponse)) error {
	var transitionErr error
	e.session.update(func(s models.SessionState) models.SessionState {
		next, err := s.Account.BeginLogin()
		if err != nil {
			transitionErr = err
			return s
		}
		s.Account = next
		return s
	})
	if transitionErr != nil {
		return transitionErr
	}

	host := e.settings.Snapshot().Host
	if err := e.creds.Login(ctx, e.login.ClientID, e.login.ClientSecret, host, prompt); err != nil {
		e.failLogin()
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		e.failLogin()
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	e.session.update(func(s models.SessionState) models.SessionState {
		if next, err := s.Account.CompleteLogin(user); err == nil {
			s.Account = next
		}
		return s
	})
	logger.Info("Logged in", zap.String("login", user.Login), zap.String("host", host))
	e.scheduler.RequestRefresh(true)
	return nil
}

func (e *Engine) failLogin() {
	e.session.update(func(s models.SessionState) models.SessionState {
		if next, err := s.Account.FailLogin(); err == nil {
			s.Account = next
		}
		return s
	})
}

// Logout forgets the credential and waits for any refresh in flight to be
// discarded before it clears the session and the cached snapshot.
func (e *Engine) Logout(ctx context.Context) error {
	if err := e.creds.Logout(); err != nil {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	e.scheduler.CancelAndWait()

	e.session.update(func(s models.SessionState) models.SessionState {
		if next, err := s.Account.Logout(); err == nil {
			s.Account = next
		}
		s = s.ClearData()
		s.IsRefreshing = false
		return s
	})

	e.mu.Lock()
	e.details = make(map[string]*detail.Aggregator)
	e.mu.Unlock()

	host := e.settings.Snapshot().Host
	if e.cache != nil {
		if err := e.cache.Clear(ctx, host); err != nil {
			logger.Warn("Failed to clear cached snapshot", zap.String("host", host), zap.Error(err))
		}
	}
	logger.Info("Logged out", zap.String("host", host))
	e.scheduler.RequestRefresh(true)
	return nil
}
