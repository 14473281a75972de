package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/rssai/pkg/models"
)

// UpsertOutcome reports what a single entry upsert did
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeUpdated
	OutcomeUnchanged
)

const entryColumns = `id, feed_id, title, content, link, published_date, content_hash, embedding`

// upsertEntrySQL updates mutable fields only when the content hash
// differs; an equal hash leaves the row, and its embedding, untouched.
// A changed hash clears the embedding so the indexer recomputes it.
const upsertEntrySQL = `
	INSERT INTO feed_entries (feed_id, title, content, link, published_date, content_hash)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (feed_id, link) DO UPDATE SET
	  title = EXCLUDED.title,
	  content = EXCLUDED.content,
	  published_date = EXCLUDED.published_date,
	  content_hash = EXCLUDED.content_hash,
	  embedding = CASE WHEN feed_entries.content_hash = EXCLUDED.content_hash
	                   THEN feed_entries.embedding ELSE NULL END
	WHERE feed_entries.content_hash <> EXCLUDED.content_hash
	RETURNING id, (xmax = 0) AS inserted`

// UpsertEntry performs an atomic insert-or-update keyed on
// (feed, link). A conflicting concurrent insert is retried once as an
// update before the error surfaces.
func (s *Store) UpsertEntry(ctx context.Context, entry *models.Entry) (UpsertOutcome, error) {
	outcome, err := s.upsertEntryOnce(ctx, entry)
	if err != nil && isUniqueViolation(err) {
		outcome, err = s.upsertEntryOnce(ctx, entry)
	}
	if err != nil {
		return OutcomeUnchanged, storeErr("store.UpsertEntry", entry.Link, err)
	}
	return outcome, nil
}

func (s *Store) upsertEntryOnce(ctx context.Context, entry *models.Entry) (UpsertOutcome, error) {
	var inserted bool
	row := s.pool.QueryRow(ctx, upsertEntrySQL,
		entry.FeedID, entry.Title, entry.Content, entry.Link, entry.Published, entry.ContentHash)
	err := row.Scan(&entry.ID, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict row already carries this content hash.
		return OutcomeUnchanged, nil
	}
	if err != nil {
		return OutcomeUnchanged, err
	}
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

// RecentEntries returns the newest entries of a feed, capped at limit.
func (s *Store) RecentEntries(ctx context.Context, feedID int64, limit int) ([]models.Entry, error) {
	return s.listEntries(ctx, "store.RecentEntries",
		`SELECT `+entryColumns+` FROM feed_entries
		 WHERE feed_id = $1
		 ORDER BY published_date DESC, id LIMIT $2`, feedID, limit)
}

// EntriesForFeed returns all entries of a feed, newest first.
func (s *Store) EntriesForFeed(ctx context.Context, feedID int64) ([]models.Entry, error) {
	return s.listEntries(ctx, "store.EntriesForFeed",
		`SELECT `+entryColumns+` FROM feed_entries
		 WHERE feed_id = $1
		 ORDER BY published_date DESC, id`, feedID)
}

// EntriesMissingEmbedding returns entries the indexer still has to
// process, oldest first so backlog drains in arrival order.
func (s *Store) EntriesMissingEmbedding(ctx context.Context, limit int) ([]models.Entry, error) {
	return s.listEntries(ctx, "store.EntriesMissingEmbedding",
		`SELECT `+entryColumns+` FROM feed_entries
		 WHERE embedding IS NULL
		 ORDER BY id LIMIT $1`, limit)
}

// CountMissingEmbedding returns how many entries are not yet indexed.
func (s *Store) CountMissingEmbedding(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM feed_entries WHERE embedding IS NULL`).Scan(&n)
	if err != nil {
		return 0, storeErr("store.CountMissingEmbedding", "", err)
	}
	return n, nil
}

// SetEmbedding stores the computed vector for an entry.
func (s *Store) SetEmbedding(ctx context.Context, entryID int64, vec pgvector.Vector) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE feed_entries SET embedding = $2 WHERE id = $1`, entryID, vec)
	if err != nil {
		return storeErr("store.SetEmbedding", "", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrNotFound, "store.SetEmbedding", "", "entry %d not found", entryID)
	}
	return nil
}

func (s *Store) listEntries(ctx context.Context, op, query string, args ...interface{}) ([]models.Entry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, "", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.FeedID, &e.Title, &e.Content, &e.Link,
			&e.Published, &e.ContentHash, &e.Embedding); err != nil {
			return nil, storeErr(op, "", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, "", err)
	}
	return entries, nil
}
