package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jokefeed/internal/models"
)

var ErrNotFound = errors.New("no interaction recorded")

// Store provides SQLite-backed persistence for joke and category
// interaction history. One row per joke (or category); absence of a row
// means no recorded interaction.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Store{db: db, now: time.Now}, nil
}

// WithClock overrides the store's time source. Tests only.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// JokeUpdate carries the fields of a partial joke-interaction write. Nil
// fields are left untouched; non-nil fields overwrite (last write wins).
type JokeUpdate struct {
	Navigated         *time.Time
	Viewed            *time.Time
	Saved             *time.Time
	Shared            *time.Time
	SetupText         *string
	PunchlineText     *string
	SetupImageURL     *string
	PunchlineImageURL *string
	FeedIndex         *int
}

// UpsertJokeInteraction inserts or partially updates the row for jokeID.
// last_update_ts is always refreshed to now.
func (s *Store) UpsertJokeInteraction(ctx context.Context, jokeID string, upd JokeUpdate) error {
	if jokeID == "" {
		return fmt.Errorf("upsert joke interaction: empty joke id")
	}

	query := `
		INSERT INTO joke_interactions (
			joke_id, navigated_ts, viewed_ts, saved_ts, shared_ts,
			setup_text, punchline_text, setup_image_url, punchline_image_url,
			feed_index, last_update_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (joke_id) DO UPDATE SET
			navigated_ts        = COALESCE(excluded.navigated_ts, joke_interactions.navigated_ts),
			viewed_ts           = COALESCE(excluded.viewed_ts, joke_interactions.viewed_ts),
			saved_ts            = COALESCE(excluded.saved_ts, joke_interactions.saved_ts),
			shared_ts           = COALESCE(excluded.shared_ts, joke_interactions.shared_ts),
			setup_text          = COALESCE(excluded.setup_text, joke_interactions.setup_text),
			punchline_text      = COALESCE(excluded.punchline_text, joke_interactions.punchline_text),
			setup_image_url     = COALESCE(excluded.setup_image_url, joke_interactions.setup_image_url),
			punchline_image_url = COALESCE(excluded.punchline_image_url, joke_interactions.punchline_image_url),
			feed_index          = COALESCE(excluded.feed_index, joke_interactions.feed_index),
			last_update_ts      = excluded.last_update_ts
	`

	_, err := s.db.ExecContext(ctx, query,
		jokeID,
		encodeTime(upd.Navigated), encodeTime(upd.Viewed), encodeTime(upd.Saved), encodeTime(upd.Shared),
		encodeString(upd.SetupText), encodeString(upd.PunchlineText),
		encodeString(upd.SetupImageURL), encodeString(upd.PunchlineImageURL),
		encodeInt(upd.FeedIndex),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert joke interaction %s: %w", jokeID, err)
	}
	return nil
}

// UpsertCategoryInteraction inserts or updates the row for categoryID,
// overwriting viewed_ts when supplied and always refreshing last_update_ts.
func (s *Store) UpsertCategoryInteraction(ctx context.Context, categoryID string, viewed *time.Time) error {
	if categoryID == "" {
		return fmt.Errorf("upsert category interaction: empty category id")
	}

	query := `
		INSERT INTO category_interactions (category_id, viewed_ts, last_update_ts)
		VALUES (?, ?, ?)
		ON CONFLICT (category_id) DO UPDATE SET
			viewed_ts      = COALESCE(excluded.viewed_ts, category_interactions.viewed_ts),
			last_update_ts = excluded.last_update_ts
	`

	_, err := s.db.ExecContext(ctx, query,
		categoryID, encodeTime(viewed), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert category interaction %s: %w", categoryID, err)
	}
	return nil
}

// GetJokeInteraction returns the row for jokeID, or ErrNotFound.
func (s *Store) GetJokeInteraction(ctx context.Context, jokeID string) (*models.InteractionRecord, error) {
	query := `
		SELECT joke_id, navigated_ts, viewed_ts, saved_ts, shared_ts,
		       setup_text, punchline_text, setup_image_url, punchline_image_url,
		       feed_index, last_update_ts
		FROM joke_interactions
		WHERE joke_id = ?
	`
	rec, err := scanJokeRow(s.db.QueryRowContext(ctx, query, jokeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get joke interaction %s: %w", jokeID, err)
	}
	return rec, nil
}

// GetCategoryInteraction returns the row for categoryID, or ErrNotFound.
func (s *Store) GetCategoryInteraction(ctx context.Context, categoryID string) (*models.CategoryInteractionRecord, error) {
	query := `
		SELECT category_id, viewed_ts, last_update_ts
		FROM category_interactions
		WHERE category_id = ?
	`
	var (
		rec     models.CategoryInteractionRecord
		viewed  sql.NullString
		lastUpd string
	)
	err := s.db.QueryRowContext(ctx, query, categoryID).Scan(&rec.CategoryID, &viewed, &lastUpd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category interaction %s: %w", categoryID, err)
	}
	if rec.Viewed, err = parseNullTime(viewed); err != nil {
		return nil, fmt.Errorf("get category interaction %s: %w", categoryID, err)
	}
	if rec.LastUpdate, err = parseTime(lastUpd); err != nil {
		return nil, fmt.Errorf("get category interaction %s: %w", categoryID, err)
	}
	return &rec, nil
}

// QueryFilter narrows QueryJokeInteractions. Zero value returns everything,
// newest first.
type QueryFilter struct {
	UpdatedSince *time.Time
	SavedOnly    bool
	SharedOnly   bool
	Limit        int
}

// QueryJokeInteractions returns matching rows ordered by last_update_ts
// descending. The timestamp indexes keep range filters off full scans.
func (s *Store) QueryJokeInteractions(ctx context.Context, f QueryFilter) ([]models.InteractionRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.UpdatedSince != nil {
		args = append(args, f.UpdatedSince.UTC().Format(time.RFC3339Nano))
		where = append(where, "last_update_ts >= ?")
	}
	if f.SavedOnly {
		where = append(where, "saved_ts IS NOT NULL")
	}
	if f.SharedOnly {
		where = append(where, "shared_ts IS NOT NULL")
	}

	query := `
		SELECT joke_id, navigated_ts, viewed_ts, saved_ts, shared_ts,
		       setup_text, punchline_text, setup_image_url, punchline_image_url,
		       feed_index, last_update_ts
		FROM joke_interactions
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_update_ts DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT ?"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query joke interactions: %w", err)
	}
	defer rows.Close()

	var out []models.InteractionRecord
	for rows.Next() {
		rec, err := scanJokeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("query joke interactions: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query joke interactions: %w", err)
	}
	return out, nil
}

// CountJokeInteractions returns the number of ledger rows.
func (s *Store) CountJokeInteractions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM joke_interactions`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJokeRow(row rowScanner) (*models.InteractionRecord, error) {
	var (
		rec        models.InteractionRecord
		navigated  sql.NullString
		viewed     sql.NullString
		saved      sql.NullString
		shared     sql.NullString
		setup      sql.NullString
		punchline  sql.NullString
		setupURL   sql.NullString
		punchURL   sql.NullString
		feedIndex  sql.NullInt64
		lastUpdate string
	)

	err := row.Scan(&rec.JokeID, &navigated, &viewed, &saved, &shared,
		&setup, &punchline, &setupURL, &punchURL, &feedIndex, &lastUpdate)
	if err != nil {
		return nil, err
	}

	if rec.Navigated, err = parseNullTime(navigated); err != nil {
		return nil, err
	}
	if rec.Viewed, err = parseNullTime(viewed); err != nil {
		return nil, err
	}
	if rec.Saved, err = parseNullTime(saved); err != nil {
		return nil, err
	}
	if rec.Shared, err = parseNullTime(shared); err != nil {
		return nil, err
	}
	if rec.LastUpdate, err = parseTime(lastUpdate); err != nil {
		return nil, err
	}

	rec.SetupText = decodeString(setup)
	rec.PunchlineText = decodeString(punchline)
	rec.SetupImageURL = decodeString(setupURL)
	rec.PunchlineImageURL = decodeString(punchURL)
	if feedIndex.Valid {
		idx := int(feedIndex.Int64)
		rec.FeedIndex = &idx
	}

	return &rec, nil
}

func encodeTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func encodeInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func decodeString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
