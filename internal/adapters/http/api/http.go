// Package api declares the public HTTP surface: the router and its handlers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/simplehttp/pkg/logger"
	"github.com/okian/simplehttp/pkg/metrics"
)

// Route names, also used as the metrics route label.
const (
	RouteHome     = "home"
	RouteHealth   = "health"
	RouteHello    = "hello"
	RouteEcho     = "echo"
	RouteNotFound = "not_found"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-Id"

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Clock returns the current time. Handlers stamp responses with it.
type Clock func() time.Time

// ErrorReporter receives errors worth reporting outside the logs.
type ErrorReporter func(err error)

// route pairs a method and path predicate with a handler.
type route struct {
	name   string
	method string
	match  func(path string) bool
	handle http.HandlerFunc
}

// Server dispatches requests to the fixed set of handlers.
// It implements http.Handler and holds no mutable state.
type Server struct {
	log    logger.Logger
	now    Clock
	report ErrorReporter

	homeHandler     *HomeHandler
	healthHandler   *HealthHandler
	helloHandler    *HelloHandler
	echoHandler     *EchoHandler
	notFoundHandler *NotFoundHandler

	routes   []route
	notFound route
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and error lines.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for response timestamps.
func WithClock(now Clock) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithErrorReporter sets the sink for echo transport errors.
func WithErrorReporter(report ErrorReporter) Option {
	return func(s *Server) {
		if report != nil {
			s.report = report
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(opts ...Option) *Server {
	s := &Server{
		log:    logger.Nop(),
		now:    time.Now,
		report: func(error) {},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.homeHandler = NewHomeHandler()
	s.healthHandler = NewHealthHandler(s.now)
	s.helloHandler = NewHelloHandler(s.now)
	s.echoHandler = NewEchoHandler(s.now, s.report)
	s.notFoundHandler = NewNotFoundHandler()

	// Order matters: the first matching route wins.
	s.routes = []route{
		{name: RouteHome, method: http.MethodGet, match: exact("/"), handle: s.homeHandler.HandleHome},
		{name: RouteHealth, method: http.MethodGet, match: exact("/health"), handle: s.healthHandler.HandleHealth},
		{name: RouteHello, method: http.MethodGet, match: prefix("/hello"), handle: s.helloHandler.HandleHello},
		{name: RouteEcho, method: http.MethodPost, match: exact("/echo"), handle: s.echoHandler.HandleEcho},
	}
	s.notFound = route{name: RouteNotFound, handle: s.notFoundHandler.HandleNotFound}
	return s
}

func exact(p string) func(string) bool {
	return func(path string) bool { return path == p }
}

func prefix(p string) func(string) bool {
	return func(path string) bool { return strings.HasPrefix(path, p) }
}

// Match returns the name of the route selected for method and path.
func (s *Server) Match(method, path string) string {
	return s.match(method, path).name
}

func (s *Server) match(method, path string) route {
	for _, rt := range s.routes {
		if rt.method == method && rt.match(path) {
			return rt
		}
	}
	return s.notFound
}

// ServeHTTP logs the request, dispatches it and records metrics.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()

	log := s.log.With(logger.String("request_id", requestID))
	fields := []logger.Field{logger.String("method", r.Method), logger.String("path", r.URL.Path)}
	if r.URL.RawQuery != "" {
		fields = append(fields, logger.String("query", r.URL.RawQuery))
	}
	log.Info(r.Context(), "request", fields...)

	rt := s.match(r.Method, r.URL.Path)

	metrics.IncInFlight()
	defer metrics.DecInFlight()

	wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	wrapped.Header().Set(RequestIDHeader, requestID)

	// Deferred so that aborted handlers (http.ErrAbortHandler) are counted too.
	defer func() { recordRequest(rt.name, r.Method, wrapped, time.Since(start)) }()

	rt.handle(wrapped, r.WithContext(logger.ContextWithLogger(r.Context(), log)))
}

// recordRequest records metrics for a finished request. Requests that ended
// without a response are labelled "aborted".
func recordRequest(routeName, method string, w *responseWriter, elapsed time.Duration) {
	durationMs := float64(elapsed.Microseconds()) / 1000
	status := "aborted"
	if w.wroteHeader {
		status = strconv.Itoa(w.statusCode)
	}

	metrics.RecordHTTPRequest(routeName, method, status)
	metrics.RecordHTTPRequestDuration(routeName, method, status, durationMs)

	if w.wroteHeader && w.statusCode >= http.StatusBadRequest {
		metrics.RecordErrorByType(getErrorType(w.statusCode), getErrorSeverity(w.statusCode))
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type helloResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type echoResponse struct {
	Echo       any    `json:"echo"`
	ReceivedAt string `json:"receivedAt"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type notFoundResponse struct {
	Error string `json:"error"`
	Path  string `json:"path"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func timestamp(now Clock) string {
	return now().UTC().Format(timestampLayout)
}
