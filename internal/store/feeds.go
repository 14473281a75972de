package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rssai/pkg/models"
)

const feedColumns = `id, url, name, title, description, category, last_updated`

// UpsertFeed inserts the feed or refreshes its metadata keyed on URL.
// The configured display name is only overwritten by a non-empty one.
func (s *Store) UpsertFeed(ctx context.Context, feed *models.Feed) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO feeds (url, name, title, description, category, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url) DO UPDATE SET
		  name = COALESCE(NULLIF(EXCLUDED.name, ''), feeds.name),
		  title = COALESCE(NULLIF(EXCLUDED.title, ''), feeds.title),
		  description = COALESCE(NULLIF(EXCLUDED.description, ''), feeds.description),
		  category = COALESCE(NULLIF(EXCLUDED.category, ''), feeds.category),
		  last_updated = COALESCE(EXCLUDED.last_updated, feeds.last_updated)
		RETURNING id`,
		feed.URL, feed.Name, feed.Title, feed.Description, feed.Category, feed.LastUpdated)
	if err := row.Scan(&feed.ID); err != nil {
		return storeErr("store.UpsertFeed", feed.URL, err)
	}
	return nil
}

// GetFeedByURL returns the feed with the given URL.
func (s *Store) GetFeedByURL(ctx context.Context, url string) (*models.Feed, error) {
	return s.scanFeed(ctx, "store.GetFeedByURL", url,
		`SELECT `+feedColumns+` FROM feeds WHERE url = $1`, url)
}

// GetFeedByName matches the display name or parsed title,
// case-insensitively.
func (s *Store) GetFeedByName(ctx context.Context, name string) (*models.Feed, error) {
	name = strings.TrimSpace(name)
	return s.scanFeed(ctx, "store.GetFeedByName", name,
		`SELECT `+feedColumns+` FROM feeds
		 WHERE LOWER(name) = LOWER($1) OR LOWER(title) = LOWER($1)
		 ORDER BY id LIMIT 1`, name)
}

// GetFeed returns the feed with the given id.
func (s *Store) GetFeed(ctx context.Context, id int64) (*models.Feed, error) {
	return s.scanFeed(ctx, "store.GetFeed", "",
		`SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
}

func (s *Store) scanFeed(ctx context.Context, op, subject, query string, args ...interface{}) (*models.Feed, error) {
	var f models.Feed
	row := s.pool.QueryRow(ctx, query, args...)
	err := row.Scan(&f.ID, &f.URL, &f.Name, &f.Title, &f.Description, &f.Category, &f.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.Errorf(models.ErrNotFound, op, subject, "no such feed")
	}
	if err != nil {
		return nil, storeErr(op, subject, err)
	}
	return &f, nil
}

// ListFeeds returns all feeds ordered by display name.
func (s *Store) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	return s.listFeeds(ctx, "store.ListFeeds",
		`SELECT `+feedColumns+` FROM feeds ORDER BY LOWER(name), id`)
}

// ListFeedsByCategory returns the feeds grouped under the given
// category label. The "uncategorized" label matches feeds without one.
func (s *Store) ListFeedsByCategory(ctx context.Context, category string) ([]models.Feed, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	return s.listFeeds(ctx, "store.ListFeedsByCategory",
		`SELECT `+feedColumns+` FROM feeds
		 WHERE LOWER(COALESCE(NULLIF(category, ''), 'uncategorized')) = $1
		 ORDER BY LOWER(name), id`, category)
}

func (s *Store) listFeeds(ctx context.Context, op, query string, args ...interface{}) ([]models.Feed, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, "", err)
	}
	defer rows.Close()

	feeds := []models.Feed{}
	for rows.Next() {
		var f models.Feed
		if err := rows.Scan(&f.ID, &f.URL, &f.Name, &f.Title, &f.Description, &f.Category, &f.LastUpdated); err != nil {
			return nil, storeErr(op, "", err)
		}
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, "", err)
	}
	return feeds, nil
}

// ListCategories returns the derived category grouping with feed counts.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT LOWER(COALESCE(NULLIF(category, ''), 'uncategorized')) AS label, COUNT(*)
		FROM feeds GROUP BY label ORDER BY label`)
	if err != nil {
		return nil, storeErr("store.ListCategories", "", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Name, &c.FeedCount); err != nil {
			return nil, storeErr("store.ListCategories", "", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("store.ListCategories", "", err)
	}
	return categories, nil
}
