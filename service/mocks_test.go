package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"repodash/db"
	"repodash/models"
)

// MockRemoteClient is a mock implementation of the remote client
type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) CurrentUser(ctx context.Context) (models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockRemoteClient) RepositoryList(ctx context.Context, limit int) ([]models.Repository, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Repository), args.Error(1)
}

func (m *MockRemoteClient) FullRepository(ctx context.Context, owner, name string) (models.Repository, error) {
	args := m.Called(ctx, owner, name)
	return args.Get(0).(models.Repository), args.Error(1)
}

func (m *MockRemoteClient) UserContributionHeatmap(ctx context.Context, username string, r models.DateRange) ([]models.HeatmapCell, error) {
	args := m.Called(ctx, username, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HeatmapCell), args.Error(1)
}

func (m *MockRemoteClient) UserActivityEvents(ctx context.Context, username string, scope models.ActivityScope, limit int) ([]models.ActivityEvent, error) {
	args := m.Called(ctx, username, scope, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivityEvent), args.Error(1)
}

func (m *MockRemoteClient) UserCommitEvents(ctx context.Context, username string, scope models.ActivityScope, limit int) ([]models.CommitSummary, error) {
	args := m.Called(ctx, username, scope, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CommitSummary), args.Error(1)
}

func (m *MockRemoteClient) RateLimitMessage(now time.Time) string {
	args := m.Called(now)
	return args.String(0)
}

func (m *MockRemoteClient) SearchRepositories(ctx context.Context, query string) ([]models.Repository, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Repository), args.Error(1)
}

func (m *MockRemoteClient) RecentRepositories(ctx context.Context, limit int) ([]models.Repository, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Repository), args.Error(1)
}

func (m *MockRemoteClient) RecentPullRequests(ctx context.Context, owner, name string, limit int) ([]models.PullRequest, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PullRequest), args.Error(1)
}

func (m *MockRemoteClient) RecentIssues(ctx context.Context, owner, name string, limit int) ([]models.Issue, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Issue), args.Error(1)
}

func (m *MockRemoteClient) RecentReleases(ctx context.Context, owner, name string, limit int) ([]models.Release, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Release), args.Error(1)
}

func (m *MockRemoteClient) RecentWorkflowRuns(ctx context.Context, owner, name string, limit int) ([]models.WorkflowRun, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkflowRun), args.Error(1)
}

func (m *MockRemoteClient) RecentCommits(ctx context.Context, owner, name string, limit int) (models.CommitList, error) {
	args := m.Called(ctx, owner, name, limit)
	return args.Get(0).(models.CommitList), args.Error(1)
}

func (m *MockRemoteClient) RecentDiscussions(ctx context.Context, owner, name string, limit int) ([]models.Discussion, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Discussion), args.Error(1)
}

func (m *MockRemoteClient) RecentTags(ctx context.Context, owner, name string, limit int) ([]models.Tag, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *MockRemoteClient) RecentBranches(ctx context.Context, owner, name string, limit int) ([]models.Branch, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Branch), args.Error(1)
}

func (m *MockRemoteClient) TopContributors(ctx context.Context, owner, name string, limit int) ([]models.Contributor, error) {
	args := m.Called(ctx, owner, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Contributor), args.Error(1)
}

// MockCredentials is a mock implementation of the credential coordinator
type MockCredentials struct {
	mock.Mock
}

func (m *MockCredentials) HasCredential() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockCredentials) RefreshIfNeeded(ctx context.Context) (*oauth2.Token, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockCredentials) Login(ctx context.Context, clientID, clientSecret, host string, prompt func(*oauth2.DeviceAuthResponse)) error {
	args := m.Called(ctx, clientID, clientSecret, host, prompt)
	return args.Error(0)
}

func (m *MockCredentials) Logout() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCredentials) RefreshLoop(ctx context.Context, interval time.Duration) {
	m.Called(ctx, interval)
}

// MockSnapshotStore is a mock implementation of the snapshot cache
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) StoreSnapshot(ctx context.Context, s db.Snapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSnapshotStore) LoadSnapshot(ctx context.Context, host string) (*db.Snapshot, error) {
	args := m.Called(ctx, host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) Clear(ctx context.Context, host string) error {
	args := m.Called(ctx, host)
	return args.Error(0)
}
