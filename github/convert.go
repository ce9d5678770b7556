package github

import (
	"fmt"
	"strings"

	gh "github.com/google/go-github/v57/github"

	"repodash/models"
)

func toUser(u *gh.User) models.User {
	return models.User{
		Login:     u.GetLogin(),
		Name:      u.GetName(),
		AvatarURL: u.GetAvatarURL(),
	}
}

// toRepository converts a list or detail record. OpenIssuesCount from the
// REST API includes pull requests; fillOpenCounts corrects it.
func toRepository(r *gh.Repository) models.Repository {
	return models.Repository{
		FullName:        r.GetFullName(),
		Owner:           r.GetOwner().GetLogin(),
		Name:            r.GetName(),
		Description:     r.GetDescription(),
		URL:             r.GetHTMLURL(),
		Language:        r.GetLanguage(),
		StarsCount:      r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		PushedAt:        r.GetPushedAt().Time,
		IsFork:          r.GetFork(),
		IsArchived:      r.GetArchived(),
		IsPrivate:       r.GetPrivate(),
	}
}

func toRepositories(in []*gh.Repository) []models.Repository {
	out := make([]models.Repository, 0, len(in))
	for _, r := range in {
		out = append(out, toRepository(r))
	}
	return out
}

// toEvent converts a feed entry. webURL is the web root of the host, used
// for events whose payload carries no link of its own.
func toEvent(e *gh.Event, webURL string) models.ActivityEvent {
	repo := e.GetRepo().GetName()
	event := models.ActivityEvent{
		Actor:      e.GetActor().GetLogin(),
		Timestamp:  e.GetCreatedAt().Time,
		Repository: repo,
		URL:        webURL + "/" + repo,
		Kind:       models.ActivityOther,
		Title:      strings.TrimSuffix(e.GetType(), "Event"),
	}

	payload, err := e.ParsePayload()
	if err != nil {
		return event
	}

	switch p := payload.(type) {
	case *gh.PushEvent:
		event.Kind = models.ActivityPush
		branch := strings.TrimPrefix(p.GetRef(), "refs/heads/")
		event.Title = fmt.Sprintf("Pushed %d commit(s) to %s", pushSize(p), branch)
		if head := p.GetHead(); head != "" {
			event.URL = fmt.Sprintf("%s/%s/commit/%s", webURL, repo, head)
		}
	case *gh.PullRequestEvent:
		event.Kind = models.ActivityPullRequest
		event.Title = fmt.Sprintf("%s pull request #%d: %s", p.GetAction(), p.GetPullRequest().GetNumber(), p.GetPullRequest().GetTitle())
		event.URL = orDefault(p.GetPullRequest().GetHTMLURL(), event.URL)
	case *gh.IssuesEvent:
		event.Kind = models.ActivityIssue
		event.Title = fmt.Sprintf("%s issue #%d: %s", p.GetAction(), p.GetIssue().GetNumber(), p.GetIssue().GetTitle())
		event.URL = orDefault(p.GetIssue().GetHTMLURL(), event.URL)
	case *gh.IssueCommentEvent:
		event.Kind = models.ActivityIssueComment
		event.Title = fmt.Sprintf("Commented on #%d: %s", p.GetIssue().GetNumber(), p.GetIssue().GetTitle())
		event.URL = orDefault(p.GetComment().GetHTMLURL(), event.URL)
	case *gh.PullRequestReviewEvent:
		event.Kind = models.ActivityReview
		event.Title = fmt.Sprintf("Reviewed #%d: %s", p.GetPullRequest().GetNumber(), p.GetPullRequest().GetTitle())
		event.URL = orDefault(p.GetReview().GetHTMLURL(), event.URL)
	case *gh.ReleaseEvent:
		event.Kind = models.ActivityRelease
		event.Title = "Released " + orDefault(p.GetRelease().GetName(), p.GetRelease().GetTagName())
		event.URL = orDefault(p.GetRelease().GetHTMLURL(), event.URL)
	case *gh.CreateEvent:
		event.Kind = models.ActivityCreate
		event.Title = strings.TrimSpace(fmt.Sprintf("Created %s %s", p.GetRefType(), p.GetRef()))
		if p.GetRefType() == "branch" || p.GetRefType() == "tag" {
			event.URL = fmt.Sprintf("%s/%s/tree/%s", webURL, repo, p.GetRef())
		}
	case *gh.DeleteEvent:
		event.Kind = models.ActivityDelete
		event.Title = fmt.Sprintf("Deleted %s %s", p.GetRefType(), p.GetRef())
	case *gh.ForkEvent:
		event.Kind = models.ActivityFork
		event.Title = "Forked to " + p.GetForkee().GetFullName()
		event.URL = orDefault(p.GetForkee().GetHTMLURL(), event.URL)
	case *gh.WatchEvent:
		event.Kind = models.ActivityStar
		event.Title = "Starred " + repo
	}
	return event
}

func toEvents(in []*gh.Event, webURL string) []models.ActivityEvent {
	out := make([]models.ActivityEvent, 0, len(in))
	for _, e := range in {
		out = append(out, toEvent(e, webURL))
	}
	return out
}

// pushCommits extracts the commits carried by a push event.
func pushCommits(e *gh.Event, webURL string) []models.CommitSummary {
	if e.GetType() != "PushEvent" {
		return nil
	}
	payload, err := e.ParsePayload()
	if err != nil {
		return nil
	}
	push, ok := payload.(*gh.PushEvent)
	if !ok {
		return nil
	}

	repo := e.GetRepo().GetName()
	out := make([]models.CommitSummary, 0, len(push.Commits))
	for _, c := range push.Commits {
		sha := orDefault(c.GetSHA(), c.GetID())
		if sha == "" {
			continue
		}
		ts := e.GetCreatedAt().Time
		if c.Timestamp != nil {
			ts = c.GetTimestamp().Time
		}
		out = append(out, models.CommitSummary{
			SHA:        sha,
			Message:    firstLine(c.GetMessage()),
			Author:     c.GetAuthor().GetName(),
			URL:        fmt.Sprintf("%s/%s/commit/%s", webURL, repo, sha),
			Repository: repo,
			Timestamp:  ts,
		})
	}
	return out
}

func pushSize(p *gh.PushEvent) int {
	if p.Size != nil {
		return p.GetSize()
	}
	return len(p.Commits)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
