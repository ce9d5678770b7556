package detail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"repodash/apierror"
	"repodash/logger"
	"repodash/models"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// MockClient is a mock implementation of the remote client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) RecentPullRequests(ctx context.Context, owner, name string, limit int) ([]models.PullRequest, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PullRequest), args.Error(1)
}

func (m *MockClient) RecentIssues(ctx context.Context, owner, name string, limit int) ([]models.Issue, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Issue), args.Error(1)
}

func (m *MockClient) RecentReleases(ctx context.Context, owner, name string, limit int) ([]models.Release, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Release), args.Error(1)
}

func (m *MockClient) RecentWorkflowRuns(ctx context.Context, owner, name string, limit int) ([]models.WorkflowRun, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkflowRun), args.Error(1)
}

func (m *MockClient) RecentCommits(ctx context.Context, owner, name string, limit int) (models.CommitList, error) {
	args := m.Called(ctx, owner, name, limit)
	return args.Get(0).(models.CommitList), args.Error(1)
}

func (m *MockClient) RecentDiscussions(ctx context.Context, owner, name string, limit int) ([]models.Discussion, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Discussion), args.Error(1)
}

func (m *MockClient) RecentTags(ctx context.Context, owner, name string, limit int) ([]models.Tag, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *MockClient) RecentBranches(ctx context.Context, owner, name string, limit int) ([]models.Branch, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Branch), args.Error(1)
}

func (m *MockClient) TopContributors(ctx context.Context, owner, name string, limit int) ([]models.Contributor, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Contributor), args.Error(1)
}

var (
	samplePulls        = []models.PullRequest{{Number: 7, Title: "Add feature", Author: "octo"}}
	sampleIssues       = []models.Issue{{Number: 3, Title: "Bug"}}
	sampleReleases     = []models.Release{{TagName: "v1.0.0"}}
	sampleRuns         = []models.WorkflowRun{{ID: 99, Name: "ci", Conclusion: "success"}}
	sampleCommits      = models.CommitList{Commits: []models.Commit{{SHA: "abc", Message: "init"}}}
	sampleDiscussions  = []models.Discussion{{Number: 1, Title: "Roadmap"}}
	sampleTags         = []models.Tag{{Name: "v1.0.0"}}
	sampleBranches     = []models.Branch{{Name: "main"}}
	sampleContributors = []models.Contributor{{Login: "octo", Contributions: 42}}
)

// expectAll sets up every category; categories in errs fail with that error.
func expectAll(m *MockClient, errs map[Category]error) {
	on := func(method string, c Category, value any) {
		if err, ok := errs[c]; ok {
			if c == Commits {
				m.On(method, mock.Anything, "octo", "repo", DefaultLimit).Return(models.CommitList{}, err)
				return
			}
			m.On(method, mock.Anything, "octo", "repo", DefaultLimit).Return(nil, err)
			return
		}
		m.On(method, mock.Anything, "octo", "repo", DefaultLimit).Return(value, nil)
	}
	on("RecentPullRequests", PullRequests, samplePulls)
	on("RecentIssues", Issues, sampleIssues)
	on("RecentReleases", Releases, sampleReleases)
	on("RecentWorkflowRuns", WorkflowRuns, sampleRuns)
	on("RecentCommits", Commits, sampleCommits)
	on("RecentDiscussions", Discussions, sampleDiscussions)
	on("RecentTags", Tags, sampleTags)
	on("RecentBranches", Branches, sampleBranches)
	on("TopContributors", Contributors, sampleContributors)
}

func newAggregator(t *testing.T, m *MockClient) *Aggregator {
	t.Helper()
	a, err := New(m, "octo/repo", 0)
	require.NoError(t, err)
	a.now = func() time.Time { return testNow }
	return a
}

func TestLoadPopulatesEveryCategory(t *testing.T) {
	m := &MockClient{}
	expectAll(m, nil)
	a := newAggregator(t, m)

	require.True(t, a.Load(context.Background()))

	d := a.Detail()
	assert.Equal(t, "octo/repo", d.FullName)
	assert.Equal(t, samplePulls, d.PullRequests)
	assert.Equal(t, sampleIssues, d.Issues)
	assert.Equal(t, sampleReleases, d.Releases)
	assert.Equal(t, sampleRuns, d.WorkflowRuns)
	assert.Equal(t, sampleCommits, d.Commits)
	assert.Equal(t, sampleDiscussions, d.Discussions)
	assert.Equal(t, sampleTags, d.Tags)
	assert.Equal(t, sampleBranches, d.Branches)
	assert.Equal(t, sampleContributors, d.Contributors)
	assert.Empty(t, d.Error)
	assert.Empty(t, d.CategoryErrors)
	assert.Equal(t, testNow, d.LoadedAt)
	assert.False(t, a.IsLoading())
	m.AssertExpectations(t)
}

func TestLoadErrorPolicy(t *testing.T) {
	notFound := apierror.New(apierror.KindNotFound, errors.New("Not Found"))
	serverErr := &apierror.Error{Kind: apierror.KindUnknown, Status: 500, Err: errors.New("Internal Server Error")}

	testCases := []struct {
		name           string
		errs           map[Category]error
		expectedError  string
		expectedFailed []Category
		check          func(*testing.T, Detail)
	}{
		{
			name:           "disabled discussions are not an error but a failing pull request fetch is",
			errs:           map[Category]error{Discussions: notFound, PullRequests: serverErr},
			expectedError:  "Request failed: unknown (status 500): Internal Server Error",
			expectedFailed: []Category{PullRequests},
			check: func(t *testing.T, d Detail) {
				assert.NotNil(t, d.Discussions)
				assert.Empty(t, d.Discussions)
				assert.Equal(t, sampleIssues, d.Issues)
			},
		},
		{
			name: "missing workflow runs are suppressed",
			errs: map[Category]error{WorkflowRuns: notFound},
			check: func(t *testing.T, d Detail) {
				assert.NotNil(t, d.WorkflowRuns)
				assert.Empty(t, d.WorkflowRuns)
			},
		},
		{
			name:           "not found on a core category surfaces",
			errs:           map[Category]error{Issues: notFound},
			expectedError:  "The requested resource was not found.",
			expectedFailed: []Category{Issues},
		},
		{
			name: "first failure in category order wins",
			errs: map[Category]error{
				Tags:     apierror.New(apierror.KindTransport, errors.New("timeout")),
				Releases: apierror.New(apierror.KindAuth, errors.New("forbidden")),
			},
			expectedError:  "Access denied. Check repository access or sign in again.",
			expectedFailed: []Category{Releases, Tags},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &MockClient{}
			expectAll(m, tc.errs)
			a := newAggregator(t, m)

			require.True(t, a.Load(context.Background()))

			d := a.Detail()
			assert.Equal(t, tc.expectedError, d.Error)
			var failed []Category
			for _, c := range Categories {
				if _, ok := d.CategoryErrors[c]; ok {
					failed = append(failed, c)
				}
			}
			assert.Equal(t, tc.expectedFailed, failed)
			if tc.check != nil {
				tc.check(t, d)
			}
		})
	}
}

func TestLoadKeepsPreviousDataOnFailure(t *testing.T) {
	m := &MockClient{}
	expectAll(m, nil)
	a := newAggregator(t, m)
	require.True(t, a.Load(context.Background()))

	m.ExpectedCalls = nil
	expectAll(m, map[Category]error{Releases: apierror.New(apierror.KindUnavailable, errors.New("503"))})
	require.True(t, a.Load(context.Background()))

	d := a.Detail()
	assert.Equal(t, sampleReleases, d.Releases)
	assert.Equal(t, "Service temporarily unavailable.", d.Error)
}

func TestLoadFailureLogsFullName(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	previous := logger.Logger
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = previous })

	m := &MockClient{}
	expectAll(m, map[Category]error{Tags: apierror.New(apierror.KindUnavailable, errors.New("503"))})
	a := newAggregator(t, m)
	require.True(t, a.Load(context.Background()))

	entries := logs.FilterMessage("Failed to load repository detail category").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "octo/repo", fields["full_name"])
	assert.Equal(t, "tags", fields["category"])
	assert.NotContains(t, fields, "repository")
}

func TestLoadIsNotReentrant(t *testing.T) {
	m := &MockClient{}
	release := make(chan struct{})
	entered := make(chan struct{})
	m.On("RecentPullRequests", mock.Anything, "octo", "repo", DefaultLimit).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(samplePulls, nil).Once()
	expectAll(m, nil)
	a := newAggregator(t, m)

	done := make(chan bool)
	go func() { done <- a.Load(context.Background()) }()
	<-entered

	assert.True(t, a.IsLoading())
	assert.False(t, a.Load(context.Background()))

	close(release)
	assert.True(t, <-done)
	assert.False(t, a.IsLoading())
	m.AssertNumberOfCalls(t, "RecentPullRequests", 1)
}

func TestLoadDiscardsCanceledResults(t *testing.T) {
	m := &MockClient{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.On("RecentPullRequests", mock.Anything, "octo", "repo", DefaultLimit).
		Run(func(mock.Arguments) { cancel() }).
		Return(samplePulls, nil).Once()
	expectAll(m, nil)
	a := newAggregator(t, m)

	assert.True(t, a.Load(ctx))

	d := a.Detail()
	assert.Nil(t, d.PullRequests)
	assert.True(t, d.LoadedAt.IsZero())
	assert.False(t, a.IsLoading())
}

func TestNewRejectsMalformedName(t *testing.T) {
	for _, name := range []string{"", "octo", "octo/", "/repo", "a/b/c"} {
		_, err := New(&MockClient{}, name, 5)
		assert.True(t, apierror.Is(err, apierror.KindInvalidConfig), name)
	}
}
