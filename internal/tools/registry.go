// Package tools exposes the pipeline as a closed set of named,
// schema-validated operations for an external agent. The registry is
// static: every operation is enumerated and validated at startup.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/rssai/internal/crawler"
	"github.com/rssai/internal/search"
	"github.com/rssai/pkg/models"
)

// Catalog is the read side of the feed store the operations consume
type Catalog interface {
	ListFeeds(ctx context.Context) ([]models.Feed, error)
	ListFeedsByCategory(ctx context.Context, category string) ([]models.Feed, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetFeedByName(ctx context.Context, name string) (*models.Feed, error)
	RecentEntries(ctx context.Context, feedID int64, limit int) ([]models.Entry, error)
	EntriesForFeed(ctx context.Context, feedID int64) ([]models.Entry, error)
}

// Searcher ranks entries against a natural-language query
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) (*search.Results, error)
}

// Refresher fetches and ingests a single feed synchronously
type Refresher interface {
	RefreshFeed(ctx context.Context, feed models.Feed) models.FeedReport
}

// Crawler extracts readable text from a URL
type Crawler interface {
	Crawl(ctx context.Context, url string) (*crawler.Page, error)
}

// Deps are the collaborators behind the operations
type Deps struct {
	Catalog  Catalog
	Searcher Searcher
	Refresh  Refresher
	Crawler  Crawler
}

// Param describes one input parameter of an operation
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Handler executes one operation against validated raw arguments
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Definition is one operation: name, input schema and handler
type Definition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Input       map[string]Param `json:"input"`
	handler     Handler
}

// Result is the structured outcome of a dispatch. Either Data or Error
// is set; a raw failure never crosses this boundary.
type Result struct {
	CallID    string               `json:"call_id"`
	Operation string               `json:"operation"`
	OK        bool                 `json:"success"`
	Data      interface{}          `json:"data,omitempty"`
	Error     *models.ErrorPayload `json:"error,omitempty"`
}

// Registry maps operation names to their definitions
type Registry struct {
	defs map[string]Definition
}

// NewRegistry enumerates and validates the operation set.
func NewRegistry(deps Deps) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition)}
	for _, def := range operations(deps) {
		if err := r.register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tools: operation with empty name")
	}
	if def.handler == nil {
		return fmt.Errorf("tools: operation %s has no handler", def.Name)
	}
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tools: duplicate operation %s", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Definitions returns the operation schemas, sorted by name, for
// advertising the tool set to the calling agent.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Dispatch runs the named operation. Malformed names or arguments
// yield a ValidationError result; handler panics are contained.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (result Result) {
	result = Result{CallID: uuid.New().String(), Operation: name}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("tools: %s panicked: %v", name, rec)
			result.OK = false
			result.Data = nil
			result.Error = &models.ErrorPayload{
				Kind: models.ErrStore, Op: name, Message: "internal failure",
			}
		}
	}()

	def, ok := r.defs[name]
	if !ok {
		result.Error = &models.ErrorPayload{
			Kind: models.ErrValidation, Op: name,
			Message: fmt.Sprintf("unknown operation %q", name),
		}
		return result
	}

	data, err := def.handler(ctx, args)
	if err != nil {
		log.Printf("tools: %s failed: %v", name, err)
		result.Error = models.PayloadOf(err)
		if result.Error.Op == "" {
			result.Error.Op = name
		}
		return result
	}
	result.OK = true
	result.Data = data
	return result
}

// decodeArgs parses raw operation arguments, tolerating an absent
// body for operations whose parameters are all optional.
func decodeArgs(op string, args json.RawMessage, target interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, target); err != nil {
		return models.Errorf(models.ErrValidation, op, "", "malformed arguments: %v", err)
	}
	return nil
}
