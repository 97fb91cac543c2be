package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/pocket-ledger/pkg/logger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a body ends up in one log line.
const maxLoggedBody = 4 << 10

// redactedFields never reach the logs. Reasons are free text written by the
// user and may hold anything.
var redactedFields = []string{
	"reason",
	"search",
	"authorization",
	"cookie",
}

// LoggingMiddleware writes one line per request through the context logger,
// so trace fields set by RequestID are attached. Bodies are only captured
// when the logger is at debug level.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := logger.FromOr(r.Context(), base)
			debug := log.Enabled(r.Context(), slog.LevelDebug)

			var reqBody string
			if debug {
				reqBody = captureRequestBody(r)
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			var respBody *cappedBuffer
			if debug {
				respBody = &cappedBuffer{}
				ww.Tee(respBody)
			}

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"route", routePattern(r),
				"query", redactQuery(r),
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"size", ww.BytesWritten(),
			}
			if debug {
				fields = append(fields, "request_body", reqBody, "response_body", redactBody(respBody.Bytes()))
			}
			log.Log(r.Context(), levelFor(status), "request completed", fields...)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// captureRequestBody reads the body for logging and puts it back.
func captureRequestBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	raw, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	if len(raw) > maxLoggedBody {
		raw = raw[:maxLoggedBody]
	}
	return redactBody(raw)
}

func redactQuery(r *http.Request) string {
	q := r.URL.Query()
	for key := range q {
		if isRedacted(key) {
			q.Set(key, "[FILTERED]")
		}
	}
	return q.Encode()
}

func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		// truncated or not JSON
		return "[UNPARSED]"
	}
	out, err := json.Marshal(redactJSON(data))
	if err != nil {
		return "[UNPARSED]"
	}
	return string(out)
}

func redactJSON(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if isRedacted(key) {
				out[key] = "[FILTERED]"
				continue
			}
			out[key] = redactJSON(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactJSON(item)
		}
		return out
	}
	return data
}

func isRedacted(key string) bool {
	key = strings.ToLower(key)
	for _, field := range redactedFields {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}

// cappedBuffer keeps the first maxLoggedBody bytes written to it.
type cappedBuffer struct {
	buf bytes.Buffer
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if room := maxLoggedBody - b.buf.Len(); room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		b.buf.Write(p)
	}
	return n, nil
}

func (b *cappedBuffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.buf.Bytes()
}
