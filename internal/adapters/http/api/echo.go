package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/okian/simplehttp/pkg/logger"
	"github.com/okian/simplehttp/pkg/metrics"
)

// Echo failure kinds, used as the echo_errors_total label.
const (
	echoErrInvalidJSON = "invalid_json"
	echoErrRead        = "read"
	echoErrAborted     = "aborted"
)

// EchoHandler returns the submitted JSON document wrapped with metadata.
type EchoHandler struct {
	now    Clock
	report ErrorReporter
}

// NewEchoHandler creates a new echo handler.
func NewEchoHandler(now Clock, report ErrorReporter) *EchoHandler {
	return &EchoHandler{now: now, report: report}
}

// HandleEcho handles POST /echo requests.
//
// The body is read to completion before parsing starts. A read failure is
// answered with 500, except when the client went away mid-body: then the
// handler aborts without writing anything.
func (h *EchoHandler) HandleEcho(w http.ResponseWriter, r *http.Request) {
	const op = "api.echo"
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		err = fmt.Errorf("%s: %w: %w", op, ErrReadBody, err)
		if abandoned(ctx, err) {
			log.Warn(ctx, "request abandoned before body was read", logger.Error(err))
			metrics.RecordEchoError(echoErrAborted)
			panic(http.ErrAbortHandler)
		}
		log.Error(ctx, "request error", logger.Error(err))
		metrics.RecordEchoError(echoErrRead)
		h.report(err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Request error"})
		return
	}
	metrics.RecordEchoPayload(len(body))

	payload, err := decodeJSON(body)
	if err != nil {
		log.Warn(ctx, "invalid json body", logger.Error(fmt.Errorf("%s: %w: %w", op, ErrInvalidJSON, err)))
		metrics.RecordEchoError(echoErrInvalidJSON)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON", Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, echoResponse{Echo: payload, ReceivedAt: timestamp(h.now)})
}

// decodeJSON parses body as exactly one JSON document. Numbers are kept as
// json.Number so that literals outside float64 range are accepted and echoed
// digit for digit.
func decodeJSON(body []byte) (any, error) {
	// Syntax check first; it rejects trailing data with the parser's message.
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidJSON)
	}
	return v, nil
}

// abandoned reports whether a body read failed because the peer is gone.
func abandoned(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}
