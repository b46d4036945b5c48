package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/simplehttp/internal/adapters/http/api"
	"github.com/okian/simplehttp/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedTime = time.Date(2026, 10, 16, 12, 34, 56, 789_000_000, time.FixedZone("CEST", 2*60*60))

const fixedStamp = "2026-10-16T10:34:56.789Z"

func fixedClock() time.Time { return fixedTime }

func newTestServer(opts ...api.Option) *api.Server {
	return api.NewServer(append([]api.Option{api.WithClock(fixedClock)}, opts...)...)
}

func serve(s http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Match(t *testing.T) {
	Convey("Given a new API server", t, func() {
		server := newTestServer()

		cases := []struct {
			method, path, want string
		}{
			{http.MethodGet, "/", api.RouteHome},
			{http.MethodGet, "/health", api.RouteHealth},
			{http.MethodGet, "/hello", api.RouteHello},
			{http.MethodGet, "/hello/there", api.RouteHello},
			{http.MethodGet, "/helloworld", api.RouteHello},
			{http.MethodPost, "/echo", api.RouteEcho},
			{http.MethodPost, "/", api.RouteNotFound},
			{http.MethodHead, "/", api.RouteNotFound},
			{http.MethodPut, "/health", api.RouteNotFound},
			{http.MethodGet, "/health/", api.RouteNotFound},
			{http.MethodPost, "/hello", api.RouteNotFound},
			{http.MethodGet, "/echo", api.RouteNotFound},
			{http.MethodPost, "/echo/", api.RouteNotFound},
			{http.MethodGet, "/Hello", api.RouteNotFound},
			{http.MethodGet, "/nope", api.RouteNotFound},
			{http.MethodGet, "", api.RouteNotFound},
		}

		for _, c := range cases {
			Convey("When routing "+c.method+" "+c.path, func() {
				So(server.Match(c.method, c.path), ShouldEqual, c.want)
			})
		}
	})
}

func TestHomeHandler(t *testing.T) {
	Convey("Given a server", t, func() {
		server := newTestServer()

		Convey("When requesting GET /", func() {
			w := serve(server, http.MethodGet, "/", "")

			Convey("Then it serves the HTML landing page", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
				body := w.Body.String()
				So(body, ShouldContainSubstring, "<title>Simple HTTP Server</title>")
				So(body, ShouldContainSubstring, `href="/health"`)
				So(body, ShouldContainSubstring, `href="/hello?name=World"`)
				So(body, ShouldContainSubstring, "POST /echo")
			})
		})

		Convey("When requesting GET / with a query string", func() {
			w := serve(server, http.MethodGet, "/?utm=1", "")

			Convey("Then the query is ignored for routing", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestHealthHandler(t *testing.T) {
	Convey("Given a server with a fixed clock", t, func() {
		server := newTestServer()

		Convey("When requesting GET /health", func() {
			w := serve(server, http.MethodGet, "/health", "")

			Convey("Then it reports healthy with an ISO-8601 UTC timestamp", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(w.Body.String(), ShouldEqual,
					`{"status":"healthy","timestamp":"`+fixedStamp+`"}`+"\n")
			})
		})
	})

	Convey("Given a server with the real clock", t, func() {
		server := api.NewServer()

		Convey("Then the timestamp parses as RFC 3339 in UTC", func() {
			body := decode(serve(server, http.MethodGet, "/health", ""))
			ts, ok := body["timestamp"].(string)
			So(ok, ShouldBeTrue)
			So(ts, ShouldEndWith, "Z")
			_, err := time.Parse(time.RFC3339Nano, ts)
			So(err, ShouldBeNil)
		})
	})
}

func TestHelloHandler(t *testing.T) {
	Convey("Given a server", t, func() {
		server := newTestServer()

		Convey("When no name is given", func() {
			body := decode(serve(server, http.MethodGet, "/hello", ""))

			Convey("Then it greets the world", func() {
				So(body["message"], ShouldEqual, "Hello, World!")
				So(body["timestamp"], ShouldEqual, fixedStamp)
			})
		})

		Convey("When the name is empty", func() {
			body := decode(serve(server, http.MethodGet, "/hello?name=", ""))

			Convey("Then it falls back to World", func() {
				So(body["message"], ShouldEqual, "Hello, World!")
			})
		})

		Convey("When a name is given", func() {
			w := serve(server, http.MethodGet, "/hello?name=Ada", "")

			Convey("Then it greets that name", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["message"], ShouldEqual, "Hello, Ada!")
			})
		})

		Convey("When the name needs JSON escaping", func() {
			w := serve(server, http.MethodGet, `/hello?name=%22Bob%22%3Cb%3E%20%C3%A9`, "")

			Convey("Then it is carried verbatim through JSON string encoding", func() {
				So(decode(w)["message"], ShouldEqual, `Hello, "Bob"<b> é!`)
			})
		})

		Convey("When the path only starts with /hello", func() {
			w := serve(server, http.MethodGet, "/hello/extra?name=Grace", "")

			Convey("Then the hello handler still answers", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["message"], ShouldEqual, "Hello, Grace!")
			})
		})
	})
}

func TestNotFoundHandler(t *testing.T) {
	Convey("Given a server", t, func() {
		server := newTestServer()

		Convey("When requesting an undefined path", func() {
			w := serve(server, http.MethodGet, "/nope", "")

			Convey("Then it returns 404 naming the path", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"error":"Not found","path":"/nope"}`)
			})
		})

		Convey("When the method does not match a known path", func() {
			w := serve(server, http.MethodDelete, "/health?x=1", "")

			Convey("Then it returns 404 without the query string", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode(w)["path"], ShouldEqual, "/health")
			})
		})

		Convey("When GET /echo is requested", func() {
			w := serve(server, http.MethodGet, "/echo", "")

			Convey("Then it is not found rather than method-not-allowed", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestRequestLogging(t *testing.T) {
	Convey("Given a server with a buffered logger", t, func() {
		var out, errOut bytes.Buffer
		log, err := logger.New(logger.WithOutput(&out), logger.WithErrorOutput(&errOut))
		So(err, ShouldBeNil)
		server := newTestServer(api.WithLogger(log))

		Convey("When a request is served", func() {
			w := serve(server, http.MethodGet, "/hello?name=Ada", "")

			Convey("Then exactly one request line is written to the regular output", func() {
				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				So(lines, ShouldHaveLength, 1)
				So(lines[0], ShouldContainSubstring, "msg=request")
				So(lines[0], ShouldContainSubstring, "method=GET")
				So(lines[0], ShouldContainSubstring, "path=/hello")
				So(lines[0], ShouldContainSubstring, `query="name=Ada"`)
				So(lines[0], ShouldContainSubstring, "time=")
				So(errOut.Len(), ShouldEqual, 0)
			})

			Convey("And the response carries the logged request id", func() {
				id := w.Header().Get(api.RequestIDHeader)
				_, err := uuid.Parse(id)
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "request_id="+id)
			})
		})

		Convey("When two requests are served", func() {
			a := serve(server, http.MethodGet, "/health", "")
			b := serve(server, http.MethodGet, "/health", "")

			Convey("Then they get distinct request ids", func() {
				So(a.Header().Get(api.RequestIDHeader), ShouldNotEqual, b.Header().Get(api.RequestIDHeader))
			})
		})
	})
}
