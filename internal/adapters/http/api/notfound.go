package api

import (
	"net/http"
)

// NotFoundHandler answers every request no route matched.
type NotFoundHandler struct{}

// NewNotFoundHandler creates a new not-found handler.
func NewNotFoundHandler() *NotFoundHandler {
	return &NotFoundHandler{}
}

// HandleNotFound writes a 404 naming the requested path.
func (h *NotFoundHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, notFoundResponse{Error: "Not found", Path: r.URL.Path})
}
