package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"catalog-api/controllers"
	"catalog-api/middleware"
)

// NewRouter registers the catalog endpoints. /items/search is registered
// before /items/{id} so it is not captured as an id.
func NewRouter(c *controllers.ItemController) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", c.Health).Methods(http.MethodGet)
	r.HandleFunc("/items", c.CreateItem).Methods(http.MethodPost)
	r.HandleFunc("/items", c.GetAllItems).Methods(http.MethodGet)
	r.HandleFunc("/items/search", c.SearchItems).Methods(http.MethodGet)
	r.HandleFunc("/items/{id}", c.GetItem).Methods(http.MethodGet)
	r.HandleFunc("/items/{id}", c.DeleteItem).Methods(http.MethodDelete)
	return r
}

// SetupRoutes returns the full handler: CORS for any origin, request ids,
// access logging and panic recovery around the router.
func SetupRoutes(c *controllers.ItemController, log *slog.Logger) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", middleware.HeaderRequestID}),
		handlers.ExposedHeaders([]string{middleware.HeaderRequestID}),
	)

	return middleware.Chain(
		cors,
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recovery(log),
	)(NewRouter(c))
}
