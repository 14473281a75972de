package models

import "time"

// UpdateCounts summarizes one feed's upsert pass
type UpdateCounts struct {
	Inserted       int `json:"inserted"`
	Updated        int `json:"updated"`
	Unchanged      int `json:"unchanged"`
	SkippedInvalid int `json:"skipped_invalid"`
}

// Add accumulates counts from another pass.
func (c *UpdateCounts) Add(other UpdateCounts) {
	c.Inserted += other.Inserted
	c.Updated += other.Updated
	c.Unchanged += other.Unchanged
	c.SkippedInvalid += other.SkippedInvalid
}

// Total returns the number of candidates considered.
func (c UpdateCounts) Total() int {
	return c.Inserted + c.Updated + c.Unchanged + c.SkippedInvalid
}

// FeedReport is the isolated per-feed outcome of a batch update
type FeedReport struct {
	FeedURL    string        `json:"feed_url"`
	FeedName   string        `json:"feed_name,omitempty"`
	OK         bool          `json:"ok"`
	Counts     UpdateCounts  `json:"counts"`
	Error      *ErrorPayload `json:"error,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}

// UpdateReport aggregates the per-feed reports of an update-all run
type UpdateReport struct {
	Feeds     []FeedReport `json:"feeds"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Counts    UpdateCounts `json:"counts"`
}

// IndexReport summarizes one embedding indexer pass
type IndexReport struct {
	Indexed   int `json:"indexed"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}
