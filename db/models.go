package db

import (
	"time"

	"repodash/models"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		host TEXT PRIMARY KEY,
		login TEXT NOT NULL,
		taken_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_repositories (
		host TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		full_name TEXT NOT NULL,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		url TEXT NOT NULL,
		language TEXT NOT NULL,
		stars_count INTEGER NOT NULL,
		forks_count INTEGER NOT NULL,
		open_issues_count INTEGER NOT NULL,
		open_prs_count INTEGER NOT NULL,
		pushed_at TIMESTAMPTZ NOT NULL,
		is_fork BOOLEAN NOT NULL,
		is_archived BOOLEAN NOT NULL,
		is_private BOOLEAN NOT NULL,
		hydrated BOOLEAN NOT NULL,
		PRIMARY KEY (host, ordinal)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_events (
		host TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		actor TEXT NOT NULL,
		url TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		kind TEXT NOT NULL,
		repository TEXT NOT NULL,
		title TEXT NOT NULL,
		PRIMARY KEY (host, ordinal)
	)`,
}

// Snapshot is the last good dashboard state published for a host.
type Snapshot struct {
	Host         string
	Login        string
	TakenAt      time.Time
	Repositories []models.Repository
	Activity     []models.ActivityEvent
}

type snapshotRow struct {
	Host    string    `db:"host"`
	Login   string    `db:"login"`
	TakenAt time.Time `db:"taken_at"`
}

type repositoryRow struct {
	FullName        string    `db:"full_name"`
	Owner           string    `db:"owner"`
	Name            string    `db:"name"`
	Description     string    `db:"description"`
	URL             string    `db:"url"`
	Language        string    `db:"language"`
	StarsCount      int       `db:"stars_count"`
	ForksCount      int       `db:"forks_count"`
	OpenIssuesCount int       `db:"open_issues_count"`
	OpenPRsCount    int       `db:"open_prs_count"`
	PushedAt        time.Time `db:"pushed_at"`
	IsFork          bool      `db:"is_fork"`
	IsArchived      bool      `db:"is_archived"`
	IsPrivate       bool      `db:"is_private"`
	Hydrated        bool      `db:"hydrated"`
}

func (r repositoryRow) toModel() models.Repository {
	return models.Repository{
		FullName:        r.FullName,
		Owner:           r.Owner,
		Name:            r.Name,
		Description:     r.Description,
		URL:             r.URL,
		Language:        r.Language,
		StarsCount:      r.StarsCount,
		ForksCount:      r.ForksCount,
		OpenIssuesCount: r.OpenIssuesCount,
		OpenPRsCount:    r.OpenPRsCount,
		PushedAt:        r.PushedAt,
		IsFork:          r.IsFork,
		IsArchived:      r.IsArchived,
		IsPrivate:       r.IsPrivate,
		Hydrated:        r.Hydrated,
	}
}

type eventRow struct {
	Actor      string    `db:"actor"`
	URL        string    `db:"url"`
	OccurredAt time.Time `db:"occurred_at"`
	Kind       string    `db:"kind"`
	Repository string    `db:"repository"`
	Title      string    `db:"title"`
}

func (e eventRow) toModel() models.ActivityEvent {
	return models.ActivityEvent{
		Actor:      e.Actor,
		URL:        e.URL,
		Timestamp:  e.OccurredAt,
		Kind:       models.ActivityKind(e.Kind),
		Repository: e.Repository,
		Title:      e.Title,
	}
}
