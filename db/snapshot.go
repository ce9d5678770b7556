package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"repodash/logger"
)

const (
	insertSnapshotQuery = `
		INSERT INTO snapshots (host, login, taken_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (host) DO UPDATE SET
			login = EXCLUDED.login,
			taken_at = EXCLUDED.taken_at
	`
	insertRepositoryQuery = `
		INSERT INTO snapshot_repositories (
			host, ordinal, full_name, owner, name, description, url, language,
			stars_count, forks_count, open_issues_count, open_prs_count,
			pushed_at, is_fork, is_archived, is_private, hydrated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	insertEventQuery = `
		INSERT INTO snapshot_events (host, ordinal, actor, url, occurred_at, kind, repository, title)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	selectSnapshotQuery = `SELECT host, login, taken_at FROM snapshots WHERE host = $1`
	selectRepositoriesQuery = `
		SELECT full_name, owner, name, description, url, language,
			stars_count, forks_count, open_issues_count, open_prs_count,
			pushed_at, is_fork, is_archived, is_private, hydrated
		FROM snapshot_repositories
		WHERE host = $1
		ORDER BY ordinal
	`
	selectEventsQuery = `
		SELECT actor, url, occurred_at, kind, repository, title
		FROM snapshot_events
		WHERE host = $1
		ORDER BY ordinal
	`
)

// StoreSnapshot replaces the cached snapshot of s.Host.
func (db *DB) StoreSnapshot(ctx context.Context, s Snapshot) error {
	if s.Host == "" {
		return fmt.Errorf("%w: snapshot host cannot be empty", ErrInvalidInput)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	if err := clearHost(ctx, tx, s.Host); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertSnapshotQuery, s.Host, s.Login, s.TakenAt); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	repoStmt, err := tx.PreparexContext(ctx, insertRepositoryQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare repository insert statement: %w", err)
	}
	defer repoStmt.Close()

	for i, r := range s.Repositories {
		if _, err := repoStmt.ExecContext(ctx,
			s.Host, i, r.FullName, r.Owner, r.Name, r.Description, r.URL, r.Language,
			r.StarsCount, r.ForksCount, r.OpenIssuesCount, r.OpenPRsCount,
			r.PushedAt, r.IsFork, r.IsArchived, r.IsPrivate, r.Hydrated,
		); err != nil {
			return fmt.Errorf("failed to insert repository %s: %w", r.FullName, err)
		}
	}

	eventStmt, err := tx.PreparexContext(ctx, insertEventQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert statement: %w", err)
	}
	defer eventStmt.Close()

	for i, e := range s.Activity {
		if _, err := eventStmt.ExecContext(ctx,
			s.Host, i, e.Actor, e.URL, e.Timestamp, string(e.Kind), e.Repository, e.Title,
		); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", e.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrTransactionFailed, err)
	}

	logger.Debug("Stored snapshot",
		zap.String("host", s.Host),
		zap.Int("repositories", len(s.Repositories)),
		zap.Int("events", len(s.Activity)))
	return nil
}

// LoadSnapshot returns the cached snapshot of host.
func (db *DB) LoadSnapshot(ctx context.Context, host string) (*Snapshot, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: snapshot host cannot be empty", ErrInvalidInput)
	}

	stmt, err := db.getStmt(ctx, selectSnapshotQuery)
	if err != nil {
		return nil, err
	}
	var header snapshotRow
	if err := stmt.GetContext(ctx, &header, host); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: host %s", ErrSnapshotNotFound, host)
		}
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", host, err)
	}

	stmt, err = db.getStmt(ctx, selectRepositoriesQuery)
	if err != nil {
		return nil, err
	}
	var repoRows []repositoryRow
	if err := stmt.SelectContext(ctx, &repoRows, host); err != nil {
		return nil, fmt.Errorf("failed to load snapshot repositories: %w", err)
	}

	stmt, err = db.getStmt(ctx, selectEventsQuery)
	if err != nil {
		return nil, err
	}
	var eventRows []eventRow
	if err := stmt.SelectContext(ctx, &eventRows, host); err != nil {
		return nil, fmt.Errorf("failed to load snapshot events: %w", err)
	}

	s := &Snapshot{Host: header.Host, Login: header.Login, TakenAt: header.TakenAt}
	for _, r := range repoRows {
		s.Repositories = append(s.Repositories, r.toModel())
	}
	for _, e := range eventRows {
		s.Activity = append(s.Activity, e.toModel())
	}
	return s, nil
}

// Clear deletes the cached snapshot of host.
func (db *DB) Clear(ctx context.Context, host string) error {
	if host == "" {
		return fmt.Errorf("%w: snapshot host cannot be empty", ErrInvalidInput)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	if err := clearHost(ctx, tx, host); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE host = $1`, host); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrTransactionFailed, err)
	}

	logger.Info("Cleared snapshot", zap.String("host", host))
	return nil
}

func clearHost(ctx context.Context, tx *sqlx.Tx, host string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_events WHERE host = $1`, host); err != nil {
		return fmt.Errorf("failed to clear snapshot events: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_repositories WHERE host = $1`, host); err != nil {
		return fmt.Errorf("failed to clear snapshot repositories: %w", err)
	}
	return nil
}
