// Package detail loads every sub-resource of one repository for its detail
// page. Categories load concurrently and fail independently.
package detail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"repodash/apierror"
	"repodash/logger"
	"repodash/models"
)

// DefaultLimit is the number of items fetched per category.
const DefaultLimit = 10

// Category is one sub-resource of a repository.
type Category string

const (
	PullRequests Category = "pull_requests"
	Issues       Category = "issues"
	Releases     Category = "releases"
	WorkflowRuns Category = "workflow_runs"
	Commits      Category = "commits"
	Discussions  Category = "discussions"
	Tags         Category = "tags"
	Branches     Category = "branches"
	Contributors Category = "contributors"
)

// Categories lists every category in the order errors are reported.
var Categories = []Category{
	PullRequests, Issues, Releases, WorkflowRuns, Commits,
	Discussions, Tags, Branches, Contributors,
}

// optional categories treat a not-found answer as "feature disabled".
var optional = map[Category]bool{
	Discussions:  true,
	WorkflowRuns: true,
}

// Client defines the remote client operations needed by the aggregator
type Client interface {
	RecentPullRequests(ctx context.Context, owner, name string, limit int) ([]models.PullRequest, error)
	RecentIssues(ctx context.Context, owner, name string, limit int) ([]models.Issue, error)
	RecentReleases(ctx context.Context, owner, name string, limit int) ([]models.Release, error)
	RecentWorkflowRuns(ctx context.Context, owner, name string, limit int) ([]models.WorkflowRun, error)
	RecentCommits(ctx context.Context, owner, name string, limit int) (models.CommitList, error)
	RecentDiscussions(ctx context.Context, owner, name string, limit int) ([]models.Discussion, error)
	RecentTags(ctx context.Context, owner, name string, limit int) ([]models.Tag, error)
	RecentBranches(ctx context.Context, owner, name string, limit int) ([]models.Branch, error)
	TopContributors(ctx context.Context, owner, name string, limit int) ([]models.Contributor, error)
}

// Detail is the loaded state of one repository.
type Detail struct {
	FullName     string
	PullRequests []models.PullRequest
	Issues       []models.Issue
	Releases     []models.Release
	WorkflowRuns []models.WorkflowRun
	Commits      models.CommitList
	Discussions  []models.Discussion
	Tags         []models.Tag
	Branches     []models.Branch
	Contributors []models.Contributor

	// Error is the first surfaced failure in category order.
	Error string
	// CategoryErrors holds the message of every surfaced failure.
	CategoryErrors map[Category]string
	LoadedAt       time.Time
}

// Aggregator loads the detail of one repository. Load is not reentrant:
// a call made while a load is running returns immediately.
type Aggregator struct {
	client Client
	owner  string
	name   string
	limit  int
	now    func() time.Time
	log    *zap.Logger

	mu      sync.RWMutex
	loading bool
	detail  Detail
}

// New creates an aggregator for fullName ("owner/name").
func New(client Client, fullName string, limit int) (*Aggregator, error) {
	owner, name, ok := models.SplitFullName(fullName)
	if !ok {
		return nil, apierror.New(apierror.KindInvalidConfig, fmt.Errorf("malformed repository name %q", fullName))
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Aggregator{
		client: client,
		owner:  owner,
		name:   name,
		limit:  limit,
		now:    time.Now,
		log:    logger.WithContext(zap.String("full_name", fullName)),
		detail: Detail{FullName: fullName},
	}, nil
}

// IsLoading reports whether a load is running.
func (a *Aggregator) IsLoading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Detail returns the last loaded state.
func (a *Aggregator) Detail() Detail {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detail
}

// outcome is what one category fetch produced.
type outcome struct {
	apply func(*Detail)
	err   error
}

// Load fetches every category concurrently and commits the results together.
// It reports false when another load was already running. Results of a
// canceled load are discarded.
func (a *Aggregator) Load(ctx context.Context) bool {
	a.mu.Lock()
	if a.loading {
		a.mu.Unlock()
		return false
	}
	a.loading = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.loading = false
		a.mu.Unlock()
	}()

	outcomes := make(map[Category]*outcome, len(Categories))
	for _, c := range Categories {
		outcomes[c] = &outcome{}
	}

	var g errgroup.Group
	for _, c := range Categories {
		out := outcomes[c]
		g.Go(func() error {
			out.apply, out.err = a.fetch(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		a.log.Debug("Discarding canceled detail load")
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.detail
	next.Error = ""
	next.CategoryErrors = make(map[Category]string)
	now := a.now()
	for _, c := range Categories {
		out := outcomes[c]
		if out.err == nil {
			out.apply(&next)
			continue
		}

		a.log.Warn("Failed to load repository detail category",
			zap.String("category", string(c)),
			zap.String("kind", apierror.KindOf(out.err).String()),
			zap.Error(out.err))

		msg := message(c, out.err, now)
		if msg == "" {
			clearCategory(&next, c)
			continue
		}
		next.CategoryErrors[c] = msg
		if next.Error == "" {
			next.Error = msg
		}
	}
	next.LoadedAt = now
	a.detail = next
	return true
}

// message maps a category failure to the message to surface, or "" when the
// failure means the optional feature is disabled.
func message(c Category, err error, now time.Time) string {
	if optional[c] && apierror.Is(err, apierror.KindNotFound) {
		return ""
	}
	return apierror.UserMessage(err, now)
}

func clearCategory(d *Detail, c Category) {
	switch c {
	case Discussions:
		d.Discussions = []models.Discussion{}
	case WorkflowRuns:
		d.WorkflowRuns = []models.WorkflowRun{}
	}
}

func (a *Aggregator) fetch(ctx context.Context, c Category) (func(*Detail), error) {
	o, n, limit := a.owner, a.name, a.limit
	switch c {
	case PullRequests:
		v, err := a.client.RecentPullRequests(ctx, o, n, limit)
		return func(d *Detail) { d.PullRequests = v }, err
	case Issues:
		v, err := a.client.RecentIssues(ctx, o, n, limit)
		return func(d *Detail) { d.Issues = v }, err
	case Releases:
		v, err := a.client.RecentReleases(ctx, o, n, limit)
		return func(d *Detail) { d.Releases = v }, err
	case WorkflowRuns:
		v, err := a.client.RecentWorkflowRuns(ctx, o, n, limit)
		return func(d *Detail) { d.WorkflowRuns = v }, err
	case Commits:
		v, err := a.client.RecentCommits(ctx, o, n, limit)
		return func(d *Detail) { d.Commits = v }, err
	case Discussions:
		v, err := a.client.RecentDiscussions(ctx, o, n, limit)
		return func(d *Detail) { d.Discussions = v }, err
	case Tags:
		v, err := a.client.RecentTags(ctx, o, n, limit)
		return func(d *Detail) { d.Tags = v }, err
	case Branches:
		v, err := a.client.RecentBranches(ctx, o, n, limit)
		return func(d *Detail) { d.Branches = v }, err
	case Contributors:
		v, err := a.client.TopContributors(ctx, o, n, limit)
		return func(d *Detail) { d.Contributors = v }, err
	default:
		return nil, errors.New("unknown category " + string(c))
	}
}
