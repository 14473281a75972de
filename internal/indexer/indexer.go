// Package indexer computes embeddings for stored entries that do not
// have one yet. It runs as a batched pass decoupled from fetching.
package indexer

import (
	"context"
	"log"

	"github.com/pgvector/pgvector-go"

	"github.com/rssai/internal/embedding"
	"github.com/rssai/pkg/models"
)

// Store is the subset of the feed store the indexer needs
type Store interface {
	EntriesMissingEmbedding(ctx context.Context, limit int) ([]models.Entry, error)
	SetEmbedding(ctx context.Context, entryID int64, vec pgvector.Vector) error
	CountMissingEmbedding(ctx context.Context) (int, error)
}

// Indexer embeds pending entries in bounded batches
type Indexer struct {
	store     Store
	embedder  embedding.Embedder
	batchSize int
	truncate  int
}

// New creates an indexer. batchSize bounds one embedding request;
// truncate bounds each entry's input text in runes.
func New(st Store, emb embedding.Embedder, batchSize, truncate int) *Indexer {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Indexer{store: st, embedder: emb, batchSize: batchSize, truncate: truncate}
}

// IndexPending embeds every entry with an absent embedding. A failing
// item is logged and left unembedded for a later pass; it never aborts
// the batch. Re-running with nothing pending is a no-op.
func (ix *Indexer) IndexPending(ctx context.Context) (models.IndexReport, error) {
	var report models.IndexReport
	for {
		entries, err := ix.store.EntriesMissingEmbedding(ctx, ix.batchSize)
		if err != nil {
			return report, err
		}
		if len(entries) == 0 {
			break
		}

		indexed, failed := ix.indexBatch(ctx, entries)
		report.Indexed += indexed
		report.Failed += failed

		// Every entry in this batch failed; stop instead of spinning
		// on the same backlog.
		if indexed == 0 {
			break
		}
	}

	remaining, err := ix.store.CountMissingEmbedding(ctx)
	if err != nil {
		return report, err
	}
	report.Remaining = remaining
	return report, nil
}

// indexBatch embeds one batch of entries. The batch call is attempted
// first; when it fails the entries are retried one by one so a single
// malformed input cannot poison its neighbors.
func (ix *Indexer) indexBatch(ctx context.Context, entries []models.Entry) (indexed, failed int) {
	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entryText(entry, ix.truncate)
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Printf("indexer: batch of %d failed, retrying per entry: %v", len(entries), err)
		return ix.indexSingly(ctx, entries, texts)
	}

	for i, entry := range entries {
		if err := ix.storeVector(ctx, entry, vectors[i]); err != nil {
			failed++
			continue
		}
		indexed++
	}
	return indexed, failed
}

func (ix *Indexer) indexSingly(ctx context.Context, entries []models.Entry, texts []string) (indexed, failed int) {
	for i, entry := range entries {
		vec, err := ix.embedder.EmbedText(ctx, texts[i])
		if err != nil {
			log.Printf("indexer: entry %d (%s) failed: %v", entry.ID, entry.Link, err)
			failed++
			continue
		}
		if err := ix.storeVector(ctx, entry, vec); err != nil {
			failed++
			continue
		}
		indexed++
	}
	return indexed, failed
}

func (ix *Indexer) storeVector(ctx context.Context, entry models.Entry, vec []float32) error {
	if err := ix.store.SetEmbedding(ctx, entry.ID, pgvector.NewVector(vec)); err != nil {
		log.Printf("indexer: store vector for entry %d failed: %v", entry.ID, err)
		return err
	}
	return nil
}

func entryText(entry models.Entry, truncate int) string {
	return embedding.Truncate(entry.Title+" "+entry.Content, truncate)
}
