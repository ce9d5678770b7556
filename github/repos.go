package github

import (
	"context"

	gh "github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"repodash/logger"
	"repodash/models"
)

const (
	// repositoryEventsLimit is how many events a hydrated record embeds.
	repositoryEventsLimit = 10
)

// CurrentUser fetches the authenticated account.
func (c *Client) CurrentUser(ctx context.Context) (models.User, error) {
	user, resp, err := c.gh.Users.Get(ctx, "")
	if err := c.done(resp, err); err != nil {
		return models.User{}, err
	}
	return toUser(user), nil
}

// RepositoryList lists up to limit repositories the account can access,
// most recently pushed first. Records are shallow but carry exact open
// issue and pull request counts where the count query succeeded.
func (c *Client) RepositoryList(ctx context.Context, limit int) ([]models.Repository, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Affiliation: "owner,collaborator,organization_member",
		Sort:        "pushed",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	}

	var all []models.Repository
	for {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err := c.done(resp, err); err != nil {
			return nil, err
		}
		all = append(all, toRepositories(repos)...)
		if (limit > 0 && len(all) >= limit) || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	if err := c.fillOpenCounts(ctx, all); err != nil {
		return nil, err
	}
	logger.Debug("Fetched repository list", zap.Int("count", len(all)))
	return all, nil
}

// RecentRepositories returns the limit most recently pushed repositories.
func (c *Client) RecentRepositories(ctx context.Context, limit int) ([]models.Repository, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Sort:        "pushed",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	}
	repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	out := toRepositories(repos)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FullRepository fetches the detail record of owner/name, with exact open
// issue and pull request counts and recent events. Only the repository
// fetch itself is fatal.
func (c *Client) FullRepository(ctx context.Context, owner, name string) (models.Repository, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err := c.done(resp, err); err != nil {
		return models.Repository{}, err
	}
	out := toRepository(repo)
	out.Hydrated = true

	counts, err := c.openCounts(ctx, []models.Repository{out})
	if err != nil {
		logger.Warn("Failed to count open issues and pull requests",
			zap.String("full_name", out.FullName),
			zap.Error(err))
	} else if n := counts[0]; n != nil {
		out.OpenIssuesCount = n.Issues.TotalCount
		out.OpenPRsCount = n.PullRequests.TotalCount
		out.CountsExact = true
	}

	events, resp, err := c.gh.Activity.ListRepositoryEvents(ctx, owner, name, &gh.ListOptions{PerPage: repositoryEventsLimit})
	if err := c.done(resp, err); err != nil {
		logger.Warn("Failed to fetch repository events",
			zap.String("full_name", out.FullName),
			zap.Error(err))
	} else {
		out.RecentEvents = toEvents(events, c.webURL)
	}

	return out, nil
}

// SearchRepositories runs a repository search and returns the first page.
func (c *Client) SearchRepositories(ctx context.Context, query string) ([]models.Repository, error) {
	result, resp, err := c.gh.Search.Repositories(ctx, query, &gh.SearchOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: 30},
	})
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	return toRepositories(result.Repositories), nil
}
