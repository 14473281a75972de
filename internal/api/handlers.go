package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rssai/internal/tools"
	"github.com/rssai/pkg/models"
)

// dispatch runs a tool operation and writes its result as an API
// response, mapping the error kind to an HTTP status.
func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request, operation string, args interface{}) {
	raw, err := json.Marshal(args)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, string(models.ErrStore),
			"Failed to encode operation arguments", err.Error())
		return
	}

	result := g.tools.Dispatch(r.Context(), operation, raw)
	if !result.OK {
		writeToolError(w, result)
		return
	}
	writeSuccessResponse(w, result.Data)
}

func writeToolError(w http.ResponseWriter, result tools.Result) {
	kind := models.ErrStore
	message := "operation failed"
	details := ""
	if result.Error != nil {
		kind = result.Error.Kind
		message = result.Error.Message
		if result.Error.Subject != "" {
			details = fmt.Sprintf("%s: %s", result.Error.Op, result.Error.Subject)
		} else {
			details = result.Error.Op
		}
	}
	writeErrorResponse(w, statusForKind(kind), string(kind), message, details)
}

func (g *Gateway) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := g.catalog.ListFeeds(r.Context())
	if err != nil {
		log.Printf("Failed to list feeds: %v", err)
		payload := models.PayloadOf(err)
		writeErrorResponse(w, statusForKind(payload.Kind), string(payload.Kind),
			payload.Message, payload.Op)
		return
	}
	writeSuccessResponse(w, map[string]interface{}{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (g *Gateway) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	g.dispatch(w, r, "get_feed_details", map[string]string{"feed_name": name})
}

func (g *Gateway) handleRefreshFeed(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	g.dispatch(w, r, "fetch_feed", map[string]string{"feed_name": name})
}

func (g *Gateway) handleListCategories(w http.ResponseWriter, r *http.Request) {
	g.dispatch(w, r, "get_all_categories", map[string]string{})
}

func (g *Gateway) handleCategoryFeeds(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	g.dispatch(w, r, "get_category_feeds", map[string]string{"category": category})
}

type searchRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	Category string `json:"category,omitempty"`
}

func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := parseRequestBody(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, string(models.ErrValidation),
			"Invalid request body", err.Error())
		return
	}
	g.dispatch(w, r, "search_related_feeds", req)
}

type crawlRequest struct {
	URL string `json:"url"`
}

func (g *Gateway) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := parseRequestBody(r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, string(models.ErrValidation),
			"Invalid request body", err.Error())
		return
	}
	g.dispatch(w, r, "crawl_url", req)
}

func (g *Gateway) handleUpdateAll(w http.ResponseWriter, r *http.Request) {
	feeds, err := g.catalog.ListFeeds(r.Context())
	if err != nil {
		log.Printf("Failed to list feeds for update: %v", err)
		payload := models.PayloadOf(err)
		writeErrorResponse(w, statusForKind(payload.Kind), string(payload.Kind),
			payload.Message, payload.Op)
		return
	}
	report := g.updater.UpdateAll(r.Context(), feeds)
	writeSuccessResponse(w, report)
}

func (g *Gateway) handleIndex(w http.ResponseWriter, r *http.Request) {
	report, err := g.indexer.IndexPending(r.Context())
	if err != nil {
		log.Printf("Indexing pass failed: %v", err)
		payload := models.PayloadOf(err)
		writeErrorResponse(w, statusForKind(payload.Kind), string(payload.Kind),
			payload.Message, payload.Op)
		return
	}
	writeSuccessResponse(w, report)
}

func (g *Gateway) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs := g.tools.Definitions()
	writeSuccessResponse(w, map[string]interface{}{
		"tools": defs,
		"total": len(defs),
	})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccessResponse(w, map[string]interface{}{
		"status":    "healthy",
		"version":   g.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
