// Package fetcher enriches shallow repository records with their full detail
// under a fixed concurrency ceiling.
package fetcher

import (
	"context"

	"go.uber.org/zap"

	"repodash/logger"
	"repodash/models"
)

// DefaultConcurrency is the number of detail fetches in flight at once.
const DefaultConcurrency = 4

// DetailFetcher defines the remote client operation needed by the fetcher
type DetailFetcher interface {
	FullRepository(ctx context.Context, owner, name string) (models.Repository, error)
}

type result struct {
	fullName   string
	repository models.Repository
	err        error
}

// Hydrate replaces each repository with its full record, fetching at most
// limit records at a time. Batches run one after another. A failed fetch
// keeps the shallow record, so the output always has the input's length and
// order. Records already hydrated are kept without a fetch. Once ctx is done
// no further batch is started.
func Hydrate(ctx context.Context, client DetailFetcher, repositories []models.Repository, limit int) []models.Repository {
	if limit < 1 {
		limit = DefaultConcurrency
	}

	names := uniqueNames(repositories)
	hydrated := make(map[string]models.Repository, len(names))

	for start := 0; start < len(names); start += limit {
		if ctx.Err() != nil {
			logger.Debug("Hydration stopped", zap.Int("remaining", len(names)-start), zap.Error(ctx.Err()))
			break
		}
		end := min(start+limit, len(names))
		for _, r := range fetchBatch(ctx, client, names[start:end]) {
			if r.err != nil {
				logger.Debug("Keeping shallow record",
					zap.String("full_name", r.fullName),
					zap.Error(r.err))
				continue
			}
			hydrated[r.fullName] = r.repository
		}
	}

	out := make([]models.Repository, len(repositories))
	for i, repo := range repositories {
		if full, ok := hydrated[repo.FullName]; ok {
			out[i] = full
		} else {
			out[i] = repo
		}
	}
	return out
}

// fetchBatch fetches every name concurrently and waits for all of them.
func fetchBatch(ctx context.Context, client DetailFetcher, names []string) []result {
	resultCh := make(chan result, len(names))
	for _, fullName := range names {
		go func(fullName string) {
			resultCh <- fetchOne(ctx, client, fullName)
		}(fullName)
	}

	results := make([]result, 0, len(names))
	for range names {
		results = append(results, <-resultCh)
	}
	return results
}

func fetchOne(ctx context.Context, client DetailFetcher, fullName string) result {
	owner, name, ok := models.SplitFullName(fullName)
	if !ok {
		return result{fullName: fullName, err: errMalformedName(fullName)}
	}
	repo, err := client.FullRepository(ctx, owner, name)
	if err != nil {
		return result{fullName: fullName, err: err}
	}
	if repo.FullName == "" {
		repo.FullName = fullName
	}
	return result{fullName: fullName, repository: repo}
}

// uniqueNames returns the distinct full names of shallow records in
// first-seen order.
func uniqueNames(repositories []models.Repository) []string {
	seen := make(map[string]struct{}, len(repositories))
	names := make([]string, 0, len(repositories))
	for _, repo := range repositories {
		if repo.Hydrated {
			continue
		}
		if _, ok := seen[repo.FullName]; ok {
			continue
		}
		seen[repo.FullName] = struct{}{}
		names = append(names, repo.FullName)
	}
	return names
}
