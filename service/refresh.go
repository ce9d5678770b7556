package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"repodash/activity"
	"repodash/apierror"
	"repodash/config"
	"repodash/db"
	"repodash/fetcher"
	"repodash/logger"
	"repodash/models"
	"repodash/pipeline"
)

// cycle holds everything one refresh cycle fetched. Each branch writes only
// its own fields.
type cycle struct {
	now          time.Time
	settings     config.Dashboard
	query        models.RepositoryQuery
	heatmapRange models.DateRange
	user         models.User

	repositories []models.Repository

	heatmap    []models.HeatmapCell
	heatmapErr error
	events     []models.ActivityEvent
	eventsErr  error
	commits    []models.CommitSummary
	commitsErr error
}

// Refresh runs one refresh cycle and publishes its result. It returns an
// error only when the repository list could not be fetched; the previous
// state is then kept and the error is published. Branch failures are
// published per branch. Nothing is published once ctx is canceled.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.creds.HasCredential() {
		e.session.update(func(s models.SessionState) models.SessionState {
			if next, err := s.Account.Logout(); err == nil {
				s.Account = next
			}
			s = s.ClearData()
			s.IsRefreshing = false
			return s
		})
		logger.Debug("No credential, session cleared")
		return nil
	}

	e.session.update(func(s models.SessionState) models.SessionState {
		s.IsRefreshing = true
		return s
	})

	now := e.now()
	c := &cycle{now: now, settings: e.settings.Snapshot()}
	c.query = c.settings.Query(now)
	c.heatmapRange = activity.HeatmapRange(now.UTC(), c.settings.HeatmapSpanWeeks)

	start := time.Now()
	logger.Debug("Refresh started", zap.Time("now", now))

	user, err := e.resolveUser(ctx)
	if err != nil {
		return e.fail(ctx, c, err)
	}
	c.user = user

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		repos, err := e.repositories(gctx, c)
		if err != nil {
			return err
		}
		c.repositories = repos
		return nil
	})
	if c.settings.ShowHeatmap {
		g.Go(func() error {
			c.heatmap, c.heatmapErr = e.client.UserContributionHeatmap(gctx, user.Login, c.heatmapRange)
			return nil
		})
	}
	g.Go(func() error {
		c.events, c.eventsErr = e.client.UserActivityEvents(gctx, user.Login, c.settings.ActivityScope, c.settings.ActivityLimit)
		return nil
	})
	g.Go(func() error {
		c.commits, c.commitsErr = e.client.UserCommitEvents(gctx, user.Login, c.settings.ActivityScope, c.settings.ActivityLimit)
		return nil
	})
	if err := g.Wait(); err != nil {
		return e.fail(ctx, c, err)
	}

	e.logBranchFailure("heatmap", c.heatmapErr)
	e.logBranchFailure("activity", c.eventsErr)
	e.logBranchFailure("commits", c.commitsErr)

	if !e.session.commit(ctx, c.apply(e.client.RateLimitMessage(now))) {
		logger.Debug("Discarding canceled refresh")
		e.clearRefreshing()
		return ctx.Err()
	}

	logger.Info("Refresh completed",
		zap.String("login", user.Login),
		zap.Int("repositories", len(c.repositories)),
		zap.Duration("duration", time.Since(start)))

	e.storeSnapshot(ctx, c)
	return nil
}

// resolveUser returns the signed-in user, asking the host when the account
// is not logged in yet.
func (e *Engine) resolveUser(ctx context.Context) (models.User, error) {
	if u := e.session.Snapshot().Account.User(); u != nil {
		return *u, nil
	}
	return e.client.CurrentUser(ctx)
}

// repositories fetches the list, backfills missing pins, applies the query
// and hydrates what remains visible.
func (e *Engine) repositories(ctx context.Context, c *cycle) ([]models.Repository, error) {
	list, err := e.client.RepositoryList(ctx, c.settings.RepositoryFetchLimit)
	if err != nil {
		return nil, err
	}

	var pins []string
	for _, p := range c.query.Pinned {
		if !c.query.IsHidden(p) {
			pins = append(pins, p)
		}
	}
	limit := c.settings.HydrationConcurrency
	backfilled := fetcher.Backfill(ctx, e.client, fetcher.MissingPinned(list, pins), limit)

	visible := pipeline.Apply(fetcher.MergeUnique(list, backfilled), c.query)
	return fetcher.Hydrate(ctx, e.client, visible, limit), nil
}

// apply returns the state transition that publishes a successful cycle.
// Failed branches keep their previous data.
func (c *cycle) apply(rateLimit string) func(models.SessionState) models.SessionState {
	return func(s models.SessionState) models.SessionState {
		if !s.Account.IsLoggedIn() {
			if next, err := s.Account.CompleteLogin(c.user); err == nil {
				s.Account = next
				logger.Info("Signed in with stored credential", zap.String("login", c.user.Login))
			}
		}

		s.Repositories = c.repositories
		s.RepositoriesError = ""

		if c.settings.ShowHeatmap {
			s.HeatmapError = apierror.UserMessage(c.heatmapErr, c.now)
			if c.heatmapErr == nil {
				s.Heatmap = activity.ClipHeatmap(c.heatmap, c.heatmapRange)
				s.HeatmapRange = c.heatmapRange
			}
		} else {
			s.Heatmap = nil
			s.HeatmapRange = models.DateRange{}
			s.HeatmapError = ""
		}

		s.ActivityError = apierror.UserMessage(c.eventsErr, c.now)
		if c.eventsErr == nil {
			s.Activity = activity.Merge(c.events, activity.Embedded(c.repositories),
				c.user.Login, c.settings.ActivityScope, c.settings.ActivityLimit)
		}

		s.CommitError = apierror.UserMessage(c.commitsErr, c.now)
		if c.commitsErr == nil {
			s.Commits = activity.MergeCommits(c.commits, c.settings.ActivityLimit)
		}

		s.Error = rateLimit
		s.IsRefreshing = false
		s.Stale = false
		s.UpdatedAt = c.now
		return s
	}
}

// fail publishes a failed cycle. The previous data stays. An auth failure
// triggers a credential health check; a credential the host rejects logs
// the account out.
func (e *Engine) fail(ctx context.Context, c *cycle, err error) error {
	if ctx.Err() != nil {
		logger.Debug("Refresh canceled", zap.Error(err))
		e.clearRefreshing()
		return apierror.New(apierror.KindCanceled, ctx.Err())
	}

	logger.Warn("Refresh failed",
		zap.String("kind", apierror.KindOf(err).String()),
		zap.Error(err))

	rejected := apierror.Is(err, apierror.KindAuth) && !e.credentialHealthy(ctx)
	msg := apierror.UserMessage(err, c.now)
	rateLimit := e.client.RateLimitMessage(c.now)

	e.session.commit(ctx, func(s models.SessionState) models.SessionState {
		if rejected {
			if next, err := s.Account.Logout(); err == nil {
				s.Account = next
				logger.Warn("Credential rejected, account logged out")
			}
		}
		s.Error = msg
		if rateLimit != "" {
			s.Error = rateLimit
		}
		s.RepositoriesError = msg
		s.IsRefreshing = false
		return s
	})
	return err
}

// credentialHealthy refreshes the credential if needed and checks the host
// still accepts it. Only an auth failure counts as unhealthy.
func (e *Engine) credentialHealthy(ctx context.Context) bool {
	if _, err := e.creds.RefreshIfNeeded(ctx); err != nil {
		logger.Debug("Credential refresh failed during health check", zap.Error(err))
		return !apierror.Is(err, apierror.KindAuth)
	}
	if _, err := e.client.CurrentUser(ctx); err != nil {
		logger.Debug("Credential check failed", zap.Error(err))
		return !apierror.Is(err, apierror.KindAuth)
	}
	return true
}

func (e *Engine) clearRefreshing() {
	e.session.update(func(s models.SessionState) models.SessionState {
		s.IsRefreshing = false
		return s
	})
}

func (e *Engine) logBranchFailure(branch string, err error) {
	if err == nil {
		return
	}
	logger.Warn("Refresh branch failed",
		zap.String("branch", branch),
		zap.String("kind", apierror.KindOf(err).String()),
		zap.Error(err))
}

// storeSnapshot caches the published repositories and activity. Failures
// are logged only.
func (e *Engine) storeSnapshot(ctx context.Context, c *cycle) {
	if e.cache == nil {
		return
	}
	state := e.session.Snapshot()
	snap := db.Snapshot{
		Host:         c.settings.Host,
		Login:        c.user.Login,
		TakenAt:      c.now,
		Repositories: state.Repositories,
		Activity:     state.Activity,
	}
	if err := e.cache.StoreSnapshot(ctx, snap); err != nil {
		logger.Warn("Failed to cache snapshot", zap.String("host", c.settings.Host), zap.Error(err))
	}
}
