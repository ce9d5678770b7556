package github

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"repodash/apierror"
	"repodash/logger"
	"repodash/models"
)

// openCountBatch bounds the aliased repositories in one count query.
const openCountBatch = 50

const openCountsFragment = `fragment openCounts on Repository {
  issues(states: OPEN) { totalCount }
  pullRequests(states: OPEN) { totalCount }
}`

type openCounts struct {
	Issues struct {
		TotalCount int `json:"totalCount"`
	} `json:"issues"`
	PullRequests struct {
		TotalCount int `json:"totalCount"`
	} `json:"pullRequests"`
}

// fillOpenCounts replaces the REST open_issues_count of each record, which
// includes pull requests, with exact open issue and pull request totals.
// Records of a failed batch keep their REST counts and stay inexact. Only
// cancellation is returned.
func (c *Client) fillOpenCounts(ctx context.Context, repos []models.Repository) error {
	for start := 0; start < len(repos); start += openCountBatch {
		batch := repos[start:min(start+openCountBatch, len(repos))]
		counts, err := c.openCounts(ctx, batch)
		if err != nil {
			if apierror.Is(err, apierror.KindCanceled) {
				return err
			}
			logger.Warn("Failed to count open issues and pull requests",
				zap.Int("count", len(batch)),
				zap.Error(err))
			continue
		}
		for i, n := range counts {
			if n != nil {
				batch[i].OpenIssuesCount = n.Issues.TotalCount
				batch[i].OpenPRsCount = n.PullRequests.TotalCount
				batch[i].CountsExact = true
			}
		}
	}
	return nil
}

// openCounts fetches the open totals of repos in one aliased query. The
// result is index-aligned with repos; malformed names get nil.
func (c *Client) openCounts(ctx context.Context, repos []models.Repository) ([]*openCounts, error) {
	var params, fields strings.Builder
	variables := make(map[string]any, 2*len(repos))
	for i, r := range repos {
		owner, name, ok := models.SplitFullName(r.FullName)
		if !ok {
			continue
		}
		if len(variables) > 0 {
			params.WriteString(", ")
		}
		fmt.Fprintf(&params, "$o%d: String!, $n%d: String!", i, i)
		fmt.Fprintf(&fields, "  r%d: repository(owner: $o%d, name: $n%d) { ...openCounts }\n", i, i, i)
		variables[fmt.Sprintf("o%d", i)] = owner
		variables[fmt.Sprintf("n%d", i)] = name
	}

	out := make([]*openCounts, len(repos))
	if len(variables) == 0 {
		return out, nil
	}

	query := "query(" + params.String() + ") {\n" + fields.String() + "}\n" + openCountsFragment
	var data map[string]*openCounts
	if err := c.graphQL(ctx, query, variables, &data); err != nil {
		return nil, err
	}
	for i := range repos {
		out[i] = data[fmt.Sprintf("r%d", i)]
	}
	return out, nil
}
