package github

import (
	"context"

	gh "github.com/google/go-github/v57/github"

	"repodash/models"
)

// RecentPullRequests lists the most recently updated open pull requests.
func (c *Client) RecentPullRequests(ctx context.Context, owner, name string, limit int) ([]models.PullRequest, error) {
	pulls, resp, err := c.gh.PullRequests.List(ctx, owner, name, &gh.PullRequestListOptions{
		State:       "open",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	})
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	out := make([]models.PullRequest, 0, len(pulls))
	for _, p := range pulls {
		out = append(out, models.PullRequest{
			Number:    p.GetNumber(),
			Title:     p.GetTitle(),
			Author:    p.GetUser().GetLogin(),
			URL:       p.GetHTMLURL(),
			State:     p.GetState(),
			IsDraft:   p.GetDraft(),
			UpdatedAt: p.GetUpdatedAt().Time,
		})
	}
	return out, nil
}

// RecentIssues lists the most recently updated open issues. Pull requests,
// which the issues endpoint also returns, are skipped.
func (c *Client) RecentIssues(ctx context.Context, owner, name string, limit int) ([]models.Issue, error) {
	issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, name, &gh.IssueListByRepoOptions{
		State:       "open",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	})
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	out := make([]models.Issue, 0, len(issues))
	for _, i := range issues {
		if i.IsPullRequest() {
			continue
		}
		out = append(out, models.Issue{
			Number:    i.GetNumber(),
			Title:     i.GetTitle(),
			Author:    i.GetUser().GetLogin(),
			URL:       i.GetHTMLURL(),
			State:     i.GetState(),
			Comments:  i.GetComments(),
			UpdatedAt: i.GetUpdatedAt().Time,
		})
	}
	return out, nil
}

func (c *Client) RecentReleases(ctx context.Context, owner, name string, limit int) ([]models.Release, error) {
	releases, resp, err := c.gh.Repositories.ListReleases(ctx, owner, name, &gh.ListOptions{PerPage: perPage(limit)})
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	out := make([]models.Release, 0, len(releases))
	for _, r := range releases {
		out = append(out, models.Release{
			TagName:      r.GetTagName(),
			Name:         r.GetName(),
			URL:          r.GetHTMLURL(),
			IsPrerelease: r.GetPrerelease(),
			PublishedAt:  r.GetPublishedAt().Time,
		})
	}
	return out, nil
}

// RecentWorkflowRuns lists recent CI runs. Repositories without Actions
// answer 404.
func (c *Client) RecentWorkflowRuns(ctx context.Context, owner, name string, limit int) ([]models.WorkflowRun, error) {
	runs, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, owner, name, &gh.ListWorkflowRunsOptions{
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	})
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	out := make([]models.WorkflowRun, 0, len(runs.WorkflowRuns))
	for _, r := range runs.WorkflowRuns {
		out = append(out, models.WorkflowRun{
			ID:         r.GetID(),
			Name:       r.GetName(),
			Branch:     r.GetHeadBranch(),
			Status:     r.GetStatus(),
			Conclusion: r.GetConclusion(),
			URL:        r.GetHTMLURL(),
			UpdatedAt:  r.GetUpdatedAt().Time,
		})
	}
	return out, nil
}

func (c *Client) RecentCommits(ctx context.Context, owner, name string, limit int) (models.CommitList, error) {
	commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	})
	if err := c.done(resp, err); err != nil {
		return models.CommitList{}, err
	}
	out := models.CommitList{Commits: make([]models.Commit, 0, len(commits))}
	for _, rc := range commits {
		author := rc.GetCommit().GetAuthor()
		out.Commits = append(out.Commits, models.Commit{
			SHA:     rc.GetSHA(),
			Message: firstLine(rc.GetCommit().GetMessage()),
			Author:  orDefault(rc.GetAuthor().GetLogin(), author.GetName()),
			URL:     rc.GetHTMLURL(),
			Date:    author.GetDate().Time,
		})
	}
	return out, nil
}

func (c *Client) RecentTags(ctx context.Context, owner, name string, limit int) ([]models.Tag, error) {
	tags, resp, err := c.gh.Repositories.ListTags(ctx, owner, name, &gh.ListOptions{PerPage: perPage(limit)})
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	out := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, models.Tag{Name: t.GetName(), SHA: t.GetCommit().GetSHA()})
	}
	return out, nil
}

func (c *Client) RecentBranches(ctx context.Context, owner, name string, limit int) ([]models.Branch, error) {
	branches, resp, err := c.gh.Repositories.ListBranches(ctx, owner, name, &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	})
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	out := make([]models.Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, models.Branch{
			Name:      b.GetName(),
			SHA:       b.GetCommit().GetSHA(),
			Protected: b.GetProtected(),
		})
	}
	return out, nil
}

// TopContributors lists contributors by commit count, highest first.
func (c *Client) TopContributors(ctx context.Context, owner, name string, limit int) ([]models.Contributor, error) {
	contributors, resp, err := c.gh.Repositories.ListContributors(ctx, owner, name, &gh.ListContributorsOptions{
		ListOptions: gh.ListOptions{PerPage: perPage(limit)},
	})
	if err := c.done(resp, err); err != nil {
		return nil, err
	}
	out := make([]models.Contributor, 0, len(contributors))
	for _, ct := range contributors {
		out = append(out, models.Contributor{Login: ct.GetLogin(), Contributions: ct.GetContributions()})
	}
	return out, nil
}
