package github

import (
	"context"

	gh "github.com/google/go-github/v57/github"

	"repodash/models"
)

// maxFeedPages bounds how far back a feed is paged.
const maxFeedPages = 3

// UserActivityEvents returns up to limit events of the user's feed: events
// the user performed for MyActivity, events the user received otherwise.
func (c *Client) UserActivityEvents(ctx context.Context, username string, scope models.ActivityScope, limit int) ([]models.ActivityEvent, error) {
	events, err := c.feed(ctx, username, scope, limit)
	if err != nil {
		return nil, err
	}
	out := toEvents(events, c.webURL)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UserCommitEvents returns up to limit commits carried by push events of
// the user's feed.
func (c *Client) UserCommitEvents(ctx context.Context, username string, scope models.ActivityScope, limit int) ([]models.CommitSummary, error) {
	events, err := c.feed(ctx, username, scope, 0)
	if err != nil {
		return nil, err
	}
	var out []models.CommitSummary
	for _, e := range events {
		out = append(out, pushCommits(e, c.webURL)...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
	}
	return out, nil
}

func (c *Client) feed(ctx context.Context, username string, scope models.ActivityScope, limit int) ([]*gh.Event, error) {
	list := c.gh.Activity.ListEventsReceivedByUser
	if scope == models.MyActivity {
		list = c.gh.Activity.ListEventsPerformedByUser
	}

	opts := &gh.ListOptions{PerPage: 100}
	if limit > 0 {
		opts.PerPage = perPage(limit)
	}

	var all []*gh.Event
	for page := 0; page < maxFeedPages; page++ {
		events, resp, err := list(ctx, username, false, opts)
		if err := c.done(resp, err); err != nil {
			return nil, err
		}
		all = append(all, events...)
		if (limit > 0 && len(all) >= limit) || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}
