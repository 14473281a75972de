// Package api exposes the pipeline over HTTP. Routes mirror the tool
// operations one-to-one; read and admin routes sit alongside them.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/rssai/internal/config"
	"github.com/rssai/internal/tools"
	"github.com/rssai/pkg/models"
)

// Gateway represents the HTTP API gateway
type Gateway struct {
	server  *http.Server
	router  *mux.Router
	tools   Dispatcher
	catalog Catalog
	updater Updater
	indexer Indexer
	config  config.APIConfig
	version string
}

// Dispatcher runs named operations against validated arguments
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args json.RawMessage) tools.Result
	Definitions() []tools.Definition
}

// Catalog is the read side of the feed store
type Catalog interface {
	ListFeeds(ctx context.Context) ([]models.Feed, error)
}

// Updater refreshes every registered feed
type Updater interface {
	UpdateAll(ctx context.Context, feeds []models.Feed) models.UpdateReport
}

// Indexer embeds entries that still lack a vector
type Indexer interface {
	IndexPending(ctx context.Context) (models.IndexReport, error)
}

// NewGateway creates the API gateway and wires its routes.
func NewGateway(cfg config.APIConfig, dispatcher Dispatcher, catalog Catalog, updater Updater, indexer Indexer, version string) *Gateway {
	router := mux.NewRouter()

	gateway := &Gateway{
		router:  router,
		tools:   dispatcher,
		catalog: catalog,
		updater: updater,
		indexer: indexer,
		config:  cfg,
		version: version,
	}

	gateway.setupRoutes()

	var handler http.Handler = router
	if cfg.EnableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		})
		handler = c.Handler(router)
	}

	gateway.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
		IdleTimeout:  cfg.IdleTimeout.Std(),
	}

	return gateway
}

// setupRoutes configures all API routes
func (g *Gateway) setupRoutes() {
	api := g.router.PathPrefix("/api/v1").Subrouter()

	// Feed routes
	api.HandleFunc("/feeds", g.handleListFeeds).Methods("GET")
	api.HandleFunc("/feeds/{name}", g.handleGetFeed).Methods("GET")
	api.HandleFunc("/feeds/{name}/refresh", g.handleRefreshFeed).Methods("POST")

	// Category routes
	api.HandleFunc("/categories", g.handleListCategories).Methods("GET")
	api.HandleFunc("/categories/{category}/feeds", g.handleCategoryFeeds).Methods("GET")

	// Search and content routes
	api.HandleFunc("/search", g.handleSearch).Methods("POST")
	api.HandleFunc("/crawl", g.handleCrawl).Methods("POST")

	// Pipeline admin routes
	api.HandleFunc("/update", g.handleUpdateAll).Methods("POST")
	api.HandleFunc("/index", g.handleIndex).Methods("POST")

	// Introspection
	api.HandleFunc("/tools", g.handleListTools).Methods("GET")
	api.HandleFunc("/health", g.handleHealth).Methods("GET")
}

// Start starts the API gateway
func (g *Gateway) Start() error {
	log.Printf("Starting API gateway on %s", g.server.Addr)
	return g.server.ListenAndServe()
}

// Stop stops the API gateway
func (g *Gateway) Stop(ctx context.Context) error {
	log.Printf("Stopping API gateway")
	return g.server.Shutdown(ctx)
}

// Response types

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Helper functions

func writeJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message, details string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	writeJSONResponse(w, status, response)
}

func writeSuccessResponse(w http.ResponseWriter, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
	}
	writeJSONResponse(w, http.StatusOK, response)
}

func parseRequestBody(r *http.Request, target interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// statusForKind maps typed error kinds to HTTP statuses
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrValidation:
		return http.StatusBadRequest
	case models.ErrFetch, models.ErrCrawl, models.ErrEmbedding:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
