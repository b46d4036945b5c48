package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// check exercises one endpoint and verifies the response.
type check struct {
	name string
	run  func(ctx context.Context, c *httpClient, baseURL string) error
}

// checks is the set run once per round.
var checks = []check{ //nolint:gochecknoglobals // immutable check table
	{name: "home", run: checkHome},
	{name: "health", run: checkHealth},
	{name: "hello_default", run: checkHelloDefault},
	{name: "hello_named", run: checkHelloNamed},
	{name: "echo", run: checkEcho},
	{name: "echo_invalid", run: checkEchoInvalid},
	{name: "not_found", run: checkNotFound},
}

func expectStatus(r *response, want int) error {
	if r.status != want {
		return fmt.Errorf("%w: got %d, want %d", ErrUnexpectedStatus, r.status, want)
	}
	return nil
}

func expectJSON(r *response, v any) error {
	if !strings.HasPrefix(r.contentType, "application/json") {
		return fmt.Errorf("%w: content type %q", ErrMismatch, r.contentType)
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("%w: decode body: %w", ErrMismatch, err)
	}
	return nil
}

func checkHome(ctx context.Context, c *httpClient, baseURL string) error {
	r, err := c.Get(ctx, baseURL+"/")
	if err != nil {
		return err
	}
	if err := expectStatus(r, 200); err != nil {
		return err
	}
	if !strings.HasPrefix(r.contentType, "text/html") || !bytes.Contains(r.body, []byte("/health")) {
		return fmt.Errorf("%w: home page", ErrMismatch)
	}
	return nil
}

func checkHealth(ctx context.Context, c *httpClient, baseURL string) error {
	r, err := c.Get(ctx, baseURL+"/health")
	if err != nil {
		return err
	}
	if err := expectStatus(r, 200); err != nil {
		return err
	}
	var body struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	if err := expectJSON(r, &body); err != nil {
		return err
	}
	if body.Status != "healthy" || body.Timestamp == "" {
		return fmt.Errorf("%w: health %+v", ErrMismatch, body)
	}
	return nil
}

func checkHelloDefault(ctx context.Context, c *httpClient, baseURL string) error {
	return greet(ctx, c, baseURL+"/hello", "Hello, World!")
}

func checkHelloNamed(ctx context.Context, c *httpClient, baseURL string) error {
	name := uuid.NewString()
	return greet(ctx, c, baseURL+"/hello?name="+url.QueryEscape(name), "Hello, "+name+"!")
}

func greet(ctx context.Context, c *httpClient, target, want string) error {
	r, err := c.Get(ctx, target)
	if err != nil {
		return err
	}
	if err := expectStatus(r, 200); err != nil {
		return err
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := expectJSON(r, &body); err != nil {
		return err
	}
	if body.Message != want {
		return fmt.Errorf("%w: got %q, want %q", ErrMismatch, body.Message, want)
	}
	return nil
}

func checkEcho(ctx context.Context, c *httpClient, baseURL string) error {
	sent := map[string]any{
		"nonce":  uuid.NewString(),
		"nested": map[string]any{"list": []any{1.5, "two", true, nil}},
	}
	payload, err := json.Marshal(sent)
	if err != nil {
		return err
	}

	r, err := c.Post(ctx, baseURL+"/echo", payload)
	if err != nil {
		return err
	}
	if err := expectStatus(r, 200); err != nil {
		return err
	}
	var body struct {
		Echo       any    `json:"echo"`
		ReceivedAt string `json:"receivedAt"`
	}
	if err := expectJSON(r, &body); err != nil {
		return err
	}

	// Compare against the decoded form of what was sent.
	var want any
	if err := json.Unmarshal(payload, &want); err != nil {
		return err
	}
	if !reflect.DeepEqual(body.Echo, want) || body.ReceivedAt == "" {
		return fmt.Errorf("%w: echo %v, want %v", ErrMismatch, body.Echo, want)
	}
	return nil
}

func checkEchoInvalid(ctx context.Context, c *httpClient, baseURL string) error {
	r, err := c.Post(ctx, baseURL+"/echo", []byte(`{"broken":`))
	if err != nil {
		return err
	}
	if err := expectStatus(r, 400); err != nil {
		return err
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := expectJSON(r, &body); err != nil {
		return err
	}
	if body.Error != "Invalid JSON" {
		return fmt.Errorf("%w: error %q", ErrMismatch, body.Error)
	}
	return nil
}

func checkNotFound(ctx context.Context, c *httpClient, baseURL string) error {
	path := "/smoke-" + uuid.NewString()
	r, err := c.Get(ctx, baseURL+path)
	if err != nil {
		return err
	}
	if err := expectStatus(r, 404); err != nil {
		return err
	}
	var body struct {
		Error string `json:"error"`
		Path  string `json:"path"`
	}
	if err := expectJSON(r, &body); err != nil {
		return err
	}
	if body.Error != "Not found" || body.Path != path {
		return fmt.Errorf("%w: not found %+v, want path %q", ErrMismatch, body, path)
	}
	return nil
}
