package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a request or error response body is logged.
const maxLoggedBody = 2048

const filtered = "[FILTERED]"

// sensitiveFields are matched as substrings of lower-cased header names and
// JSON keys. Seller contact details and reporter emails are personal data.
var sensitiveFields = []string{
	"authorization",
	"secret",
	"api_key",
	"token",
	"password",
	"signature",
	"contact_email",
	"contact_phone",
	"reporter_email",
}

// LoggingMiddleware writes one line per request and one per response. Request
// bodies are logged only for JSON; photo uploads and webhook payloads are
// summarised by size. Response bodies are logged only for failed requests.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())

			logRequest(logger, r, reqID)

			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			logResponse(logger, r, rw, time.Since(start), reqID)
		})
	}
}

// responseWriter keeps the status and the first bytes of the body.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
	head       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - rw.head.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		rw.head.Write(b[:room])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *responseWriter) status() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

func logRequest(logger *slog.Logger, r *http.Request, reqID string) {
	logger.Info("incoming request",
		"request_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", filterSensitiveHeaders(r.Header),
		"body", requestBodySummary(r),
	)
}

func logResponse(logger *slog.Logger, r *http.Request, rw *responseWriter, duration time.Duration, reqID string) {
	status := rw.status()

	level := slog.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	attrs := []any{
		"request_id", reqID,
		"route", routePattern(r),
		"status_code", status,
		"duration_ms", duration.Milliseconds(),
		"response_size", rw.size,
	}
	if status >= http.StatusBadRequest {
		attrs = append(attrs, "body", filterSensitiveBody(rw.head.Bytes()))
	}
	logger.Log(context.Background(), level, "response", attrs...)
}

// requestBodySummary reads a JSON body for logging and puts it back for the
// handler. Anything else is described by content type and length only.
func requestBodySummary(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" || strings.HasSuffix(r.URL.Path, "/webhook") {
		return "[" + mediaType + ", " + humanLength(r.ContentLength) + "]"
	}

	raw, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "[unreadable body]"
	}
	if len(raw) > maxLoggedBody {
		return "[json, " + humanLength(int64(len(raw))) + "]"
	}
	return filterSensitiveBody(raw)
}

func humanLength(n int64) string {
	if n < 0 {
		return "unknown length"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// filterSensitiveBody masks sensitive keys of a JSON body. Non-JSON content is
// never logged verbatim.
func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "[non-json body]"
	}
	out, err := json.Marshal(filterSensitiveJSON(data))
	if err != nil {
		return "[unloggable body]"
	}
	return string(out)
}

func filterSensitiveJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = filterSensitiveJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = filterSensitiveJSON(item)
		}
		return out
	default:
		return v
	}
}
