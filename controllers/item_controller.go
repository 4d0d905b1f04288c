package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"catalog-api/middleware"
	"catalog-api/models"
	"catalog-api/services"
)

// ItemService is the catalog behaviour the HTTP layer depends on.
type ItemService interface {
	Create(ctx context.Context, req models.CreateItemRequest) (*models.Item, error)
	ListAll(ctx context.Context) ([]models.Item, error)
	Search(ctx context.Context, query string) ([]models.Item, error)
	Get(ctx context.Context, id string) (*models.Item, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type ItemController struct {
	svc ItemService
	log *slog.Logger
}

func NewItemController(svc ItemService, log *slog.Logger) *ItemController {
	return &ItemController{svc: svc, log: log}
}

// CreateItem handles POST /items.
func (c *ItemController) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := c.svc.Create(r.Context(), req)
	if err != nil {
		c.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// GetAllItems handles GET /items.
func (c *ItemController) GetAllItems(w http.ResponseWriter, r *http.Request) {
	items, err := c.svc.ListAll(r.Context())
	if err != nil {
		c.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// SearchItems handles GET /items/search?q=.
func (c *ItemController) SearchItems(w http.ResponseWriter, r *http.Request) {
	items, err := c.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		c.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// GetItem handles GET /items/{id}.
func (c *ItemController) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := c.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		c.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /items/{id}.
func (c *ItemController) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		c.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Health handles GET /health.
func (c *ItemController) Health(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Ping(r.Context()); err != nil {
		c.log.Error("health check failed", "error", err, "request_id", middleware.RequestIDFromContext(r.Context()))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleError maps service errors to status codes. Validation messages are
// returned as-is; anything else gets a generic body and is logged.
func (c *ItemController) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "item not found")
	default:
		c.log.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
