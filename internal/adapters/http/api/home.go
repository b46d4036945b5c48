package api

import (
	"net/http"
)

// HomeHandler serves the static landing page.
type HomeHandler struct{}

// NewHomeHandler creates a new home handler.
func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// HandleHome handles GET / requests.
func (h *HomeHandler) HandleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}
