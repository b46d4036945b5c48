package api

import (
	"net/http"
)

const defaultName = "World"

// HelloHandler greets the caller.
type HelloHandler struct {
	now Clock
}

// NewHelloHandler creates a new hello handler.
func NewHelloHandler(now Clock) *HelloHandler {
	return &HelloHandler{now: now}
}

// HandleHello handles GET /hello requests. The name query parameter
// defaults to "World" when absent or empty.
func (h *HelloHandler) HandleHello(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultName
	}
	writeJSON(w, http.StatusOK, helloResponse{
		Message:   "Hello, " + name + "!",
		Timestamp: timestamp(h.now),
	})
}
