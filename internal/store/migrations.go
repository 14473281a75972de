package store

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE feeds (
	  id BIGSERIAL PRIMARY KEY,
	  url TEXT NOT NULL UNIQUE,
	  name TEXT NOT NULL DEFAULT '',
	  title TEXT NOT NULL DEFAULT '',
	  description TEXT NOT NULL DEFAULT '',
	  category TEXT NOT NULL DEFAULT '',
	  last_updated TIMESTAMPTZ
	)`,
	`CREATE TABLE feed_entries (
	  id BIGSERIAL PRIMARY KEY,
	  feed_id BIGINT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
	  title TEXT NOT NULL,
	  content TEXT NOT NULL,
	  link TEXT NOT NULL,
	  published_date TIMESTAMPTZ NOT NULL,
	  content_hash TEXT NOT NULL,
	  embedding vector(768),
	  UNIQUE (feed_id, link)
	)`,
	`CREATE INDEX feed_entries_published_idx
	  ON feed_entries (published_date DESC)`,
	`CREATE INDEX feed_entries_embedding_idx
	  ON feed_entries USING hnsw (embedding vector_l2_ops)`,
}
