package fetcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"repodash/logger"
	"repodash/models"
)

func errMalformedName(fullName string) error {
	return fmt.Errorf("malformed repository name %q", fullName)
}

// MissingPinned returns the pinned names absent from repositories, in
// pinned order.
func MissingPinned(repositories []models.Repository, pinned []string) []string {
	present := make(map[string]struct{}, len(repositories))
	for _, repo := range repositories {
		present[repo.FullName] = struct{}{}
	}

	var missing []string
	for _, fullName := range pinned {
		if _, ok := present[fullName]; ok {
			continue
		}
		present[fullName] = struct{}{}
		missing = append(missing, fullName)
	}
	return missing
}

// Backfill fetches full records for fullNames with at most limit fetches in
// flight. Failures are logged and dropped. Successes keep the order of
// fullNames.
func Backfill(ctx context.Context, client DetailFetcher, fullNames []string, limit int) []models.Repository {
	if len(fullNames) == 0 {
		return nil
	}
	if limit < 1 {
		limit = DefaultConcurrency
	}

	results := make([]result, len(fullNames))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, fullName := range fullNames {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = result{fullName: fullName, err: ctx.Err()}
				return nil
			}
			results[i] = fetchOne(ctx, client, fullName)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.Repository, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			logger.Info("Dropping pinned repository that could not be fetched",
				zap.String("full_name", r.fullName),
				zap.Error(r.err))
			continue
		}
		out = append(out, r.repository)
	}
	return out
}

// MergeUnique concatenates lists, keeping the first record seen for each
// full name.
func MergeUnique(lists ...[]models.Repository) []models.Repository {
	var total int
	for _, list := range lists {
		total += len(list)
	}

	seen := make(map[string]struct{}, total)
	out := make([]models.Repository, 0, total)
	for _, list := range lists {
		for _, repo := range list {
			if _, ok := seen[repo.FullName]; ok {
				continue
			}
			seen[repo.FullName] = struct{}{}
			out = append(out, repo)
		}
	}
	return out
}
