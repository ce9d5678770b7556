package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"repodash/apierror"
	"repodash/models"
)

const heatmapQuery = `query($login: String!, $from: DateTime!, $to: DateTime!) {
  user(login: $login) {
    contributionsCollection(from: $from, to: $to) {
      contributionCalendar {
        weeks { contributionDays { date contributionCount } }
      }
    }
  }
}`

const discussionsQuery = `query($owner: String!, $name: String!, $first: Int!) {
  repository(owner: $owner, name: $name) {
    hasDiscussionsEnabled
    discussions(first: $first, orderBy: {field: UPDATED_AT, direction: DESC}) {
      nodes {
        number
        title
        url
        updatedAt
        author { login }
        category { name }
      }
    }
  }
}`

// ErrDiscussionsDisabled is returned, classified as not found, for
// repositories with discussions turned off.
var ErrDiscussionsDisabled = errors.New("discussions are disabled for this repository")

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *Client) graphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	req, err := c.gh.NewRequest(http.MethodPost, c.graphQLPath, graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return apierror.New(apierror.KindInvalidConfig, err)
	}

	var envelope graphQLResponse
	resp, err := c.gh.Do(ctx, req, &envelope)
	if err := c.done(resp, err); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return classifyGraphQL(envelope.Errors)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return apierror.New(apierror.KindDecode, fmt.Errorf("decode graphql data: %w", err))
	}
	return nil
}

// UserContributionHeatmap returns one cell per day of r for username.
func (c *Client) UserContributionHeatmap(ctx context.Context, username string, r models.DateRange) ([]models.HeatmapCell, error) {
	var data struct {
		User *struct {
			ContributionsCollection struct {
				ContributionCalendar struct {
					Weeks []struct {
						ContributionDays []struct {
							Date              string `json:"date"`
							ContributionCount int    `json:"contributionCount"`
						} `json:"contributionDays"`
					} `json:"weeks"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	}

	variables := map[string]any{
		"login": username,
		"from":  r.From.UTC().Format(time.RFC3339),
		"to":    r.To.UTC().Add(24*time.Hour - time.Second).Format(time.RFC3339),
	}
	if err := c.graphQL(ctx, heatmapQuery, variables, &data); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, apierror.New(apierror.KindNotFound, fmt.Errorf("user %q not found", username))
	}

	var cells []models.HeatmapCell
	for _, week := range data.User.ContributionsCollection.ContributionCalendar.Weeks {
		for _, day := range week.ContributionDays {
			date, err := time.Parse(time.DateOnly, day.Date)
			if err != nil {
				return nil, apierror.New(apierror.KindDecode, fmt.Errorf("parse contribution date %q: %w", day.Date, err))
			}
			cells = append(cells, models.HeatmapCell{Date: date, Count: day.ContributionCount})
		}
	}
	return cells, nil
}

// RecentDiscussions lists the most recently updated discussions.
func (c *Client) RecentDiscussions(ctx context.Context, owner, name string, limit int) ([]models.Discussion, error) {
	var data struct {
		Repository *struct {
			HasDiscussionsEnabled bool `json:"hasDiscussionsEnabled"`
			Discussions           struct {
				Nodes []struct {
					Number    int       `json:"number"`
					Title     string    `json:"title"`
					URL       string    `json:"url"`
					UpdatedAt time.Time `json:"updatedAt"`
					Author    *struct {
						Login string `json:"login"`
					} `json:"author"`
					Category struct {
						Name string `json:"name"`
					} `json:"category"`
				} `json:"nodes"`
			} `json:"discussions"`
		} `json:"repository"`
	}

	variables := map[string]any{"owner": owner, "name": name, "first": perPage(limit)}
	if err := c.graphQL(ctx, discussionsQuery, variables, &data); err != nil {
		return nil, err
	}
	if data.Repository == nil {
		return nil, apierror.New(apierror.KindNotFound, fmt.Errorf("repository %s/%s not found", owner, name))
	}
	if !data.Repository.HasDiscussionsEnabled {
		return nil, apierror.New(apierror.KindNotFound, ErrDiscussionsDisabled)
	}

	out := make([]models.Discussion, 0, len(data.Repository.Discussions.Nodes))
	for _, d := range data.Repository.Discussions.Nodes {
		discussion := models.Discussion{
			Number:    d.Number,
			Title:     d.Title,
			URL:       d.URL,
			Category:  d.Category.Name,
			UpdatedAt: d.UpdatedAt,
		}
		if d.Author != nil {
			discussion.Author = d.Author.Login
		}
		out = append(out, discussion)
	}
	return out, nil
}
