package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/rssai/pkg/models"
)

// SearchQuery parameterizes one approximate nearest-neighbor query
type SearchQuery struct {
	Vector   pgvector.Vector
	Limit    int
	Breadth  int    // hnsw.ef_search, trades recall for latency
	Category string // optional derived category filter
	FeedID   int64  // optional feed scope, 0 means all feeds
}

// SearchEntries runs an approximate nearest-neighbor query over the
// entry embeddings, L2 distance ascending with the entry id as the
// deterministic tiebreak. Entries without an embedding are never
// candidates. The search breadth is scoped to the transaction.
func (s *Store) SearchEntries(ctx context.Context, q SearchQuery) ([]models.SearchHit, error) {
	const op = "store.SearchEntries"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr(op, "", err)
	}
	defer tx.Rollback(ctx)

	if q.Breadth > 0 {
		// SET LOCAL takes no bind parameters; the breadth is an
		// integer under our control.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", q.Breadth)); err != nil {
			return nil, storeErr(op, "", err)
		}
	}

	query := `
		SELECT fe.id, fe.feed_id, fe.title, fe.content, fe.link,
		       fe.published_date, fe.content_hash,
		       f.name, f.url, f.category,
		       fe.embedding <-> $1 AS distance
		FROM feed_entries fe
		JOIN feeds f ON f.id = fe.feed_id
		WHERE fe.embedding IS NOT NULL`
	args := []interface{}{q.Vector}

	if q.Category != "" {
		args = append(args, strings.ToLower(strings.TrimSpace(q.Category)))
		query += fmt.Sprintf(`
		  AND LOWER(COALESCE(NULLIF(f.category, ''), 'uncategorized')) = $%d`, len(args))
	}
	if q.FeedID > 0 {
		args = append(args, q.FeedID)
		query += fmt.Sprintf(`
		  AND fe.feed_id = $%d`, len(args))
	}
	args = append(args, q.Limit)
	query += fmt.Sprintf(`
		ORDER BY distance, fe.id
		LIMIT $%d`, len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, "", err)
	}
	defer rows.Close()

	hits := []models.SearchHit{}
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.Entry.ID, &h.Entry.FeedID, &h.Entry.Title, &h.Entry.Content,
			&h.Entry.Link, &h.Entry.Published, &h.Entry.ContentHash,
			&h.FeedName, &h.FeedURL, &h.FeedCategory, &h.Distance); err != nil {
			return nil, storeErr(op, "", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, "", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr(op, "", err)
	}
	return hits, nil
}
