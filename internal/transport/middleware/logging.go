package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/backoffice-access/pkg/logger"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

const (
	filtered      = "[FILTERED]"
	maxLoggedBody = 4 << 10
)

// redactedKeys are compared after lowercasing and dropping '_' and '-', so
// refresh_token, refreshToken and Refresh-Token all match "refreshtoken".
var redactedKeys = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"setcookie":     {},
	"apikey":        {},
	"xapikey":       {},
	"credential":    {},
	"credentials":   {},
	"passwordhash":  {},
}

// Any key ending in one of these is redacted as well.
var redactedSuffixes = []string{"password", "token", "secret"}

var keyNormalizer = strings.NewReplacer("_", "", "-", "")

// LoggingMiddleware logs one line per request, at warn for 4xx and error for
// 5xx. The request logger is stored in the context so handlers and guards
// log with the request id attached. Headers and bodies are only read when
// debug is enabled, and are redacted and truncated.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			reqLogger := base.With(
				"request_id", chiMiddleware.GetReqID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx = logger.Into(ctx, reqLogger)

			verbose := reqLogger.Enabled(ctx, slog.LevelDebug)
			var reqBody []byte
			if verbose && r.Body != nil {
				reqBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			var respBody bytes.Buffer
			if verbose {
				ww.Tee(&respBody)
			}

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.Int("status_code", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int("response_size", ww.BytesWritten()),
			}
			if verbose {
				attrs = append(attrs,
					slog.String("query", r.URL.RawQuery),
					slog.Any("headers", redactHeaders(r.Header)),
					slog.String("request_body", redactBody(reqBody)),
					slog.String("response_body", redactBody(respBody.Bytes())),
				)
			}
			reqLogger.LogAttrs(ctx, levelForStatus(status), "request handled", attrs...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func isRedactedKey(key string) bool {
	k := keyNormalizer.Replace(strings.ToLower(key))
	if _, ok := redactedKeys[k]; ok {
		return true
	}
	for _, suffix := range redactedSuffixes {
		if strings.HasSuffix(k, suffix) {
			return true
		}
	}
	return false
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isRedactedKey(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// redactBody masks sensitive keys in a JSON body. A body that is not JSON is
// dropped whole when it mentions a sensitive word.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		lower := strings.ToLower(string(body))
		for _, suffix := range redactedSuffixes {
			if strings.Contains(lower, suffix) {
				return filtered
			}
		}
		return truncate(string(body))
	}

	out, err := json.Marshal(redactValue(doc))
	if err != nil {
		return filtered
	}
	return truncate(string(out))
}

func redactValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if isRedactedKey(key) {
				v[key] = filtered
				continue
			}
			v[key] = redactValue(value)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = redactValue(item)
		}
		return v
	}
	return v
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "...(truncated)"
}
