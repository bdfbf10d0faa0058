package middleware

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CacheConfig controls the ETag and Cache-Control headers stamped onto read
// responses. Availability numbers go stale the moment another terminal books
// a reservation, so the defaults keep the window short and mark everything
// private: lot and case data is per-clinic.
type CacheConfig struct {
	MaxAge             int      // max-age in seconds
	Private            bool     // Cache-Control: private instead of public
	NoStore            bool     // no-store wins over every other directive
	VaryHeaders        []string // headers that change the representation
	ETagEnabled        bool
	ConditionalEnabled bool     // answer If-None-Match with 304
	ExcludePaths       []string // exact paths that skip cache headers entirely
}

// DefaultCacheConfig suits the read endpoints: a front-desk screen polling
// availability gets a minute of reuse without hiding a reservation made on
// another terminal for long.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxAge:             60,
		Private:            true,
		VaryHeaders:        []string{"Accept", "Authorization"},
		ETagEnabled:        true,
		ConditionalEnabled: true,
	}
}

// replayWriter buffers the handler's output so the middleware can hash the
// body before deciding whether to send it or answer 304.
type replayWriter struct {
	dst        http.ResponseWriter
	body       bytes.Buffer
	statusCode int
}

func (w *replayWriter) Header() http.Header         { return w.dst.Header() }
func (w *replayWriter) Write(b []byte) (int, error) { return w.body.Write(b) }
func (w *replayWriter) WriteHeader(code int)        { w.statusCode = code }

// Flush is a no-op; the body is held until replay.
func (w *replayWriter) Flush() {}

func (w *replayWriter) replay() error {
	w.dst.WriteHeader(w.statusCode)
	if w.body.Len() == 0 {
		return nil
	}
	_, err := w.dst.Write(w.body.Bytes())
	return err
}

// ETagMiddleware stamps ETag, Cache-Control, and Vary headers on successful
// GET/HEAD responses and, when conditional handling is enabled, answers a
// matching If-None-Match with 304 Not Modified and no body.
func ETagMiddleware(config CacheConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			for _, p := range config.ExcludePaths {
				if req.URL.Path == p {
					return next(c)
				}
			}

			res := c.Response()
			orig := res.Writer
			buf := &replayWriter{dst: orig, statusCode: http.StatusOK}
			res.Writer = buf

			err := next(c)
			res.Writer = orig
			if err != nil {
				return err
			}
			// Errors carry no validators; replay them untouched.
			if buf.statusCode >= 400 {
				return buf.replay()
			}

			res.Header().Set("Cache-Control", cacheControl(config))
			if len(config.VaryHeaders) > 0 {
				res.Header().Set("Vary", strings.Join(config.VaryHeaders, ", "))
			}

			if config.ETagEnabled {
				etag := bodyETag(buf.body.Bytes())
				res.Header().Set("ETag", etag)
				if config.ConditionalEnabled && etagMatches(req.Header.Get("If-None-Match"), etag) {
					orig.WriteHeader(http.StatusNotModified)
					return nil
				}
			}

			return buf.replay()
		}
	}
}

// bodyETag builds a weak validator from an FNV-1a hash of the body plus its
// length. Weak because the serialization is not canonical; two encodings of
// the same resource may differ in whitespace.
func bodyETag(body []byte) string {
	h := fnv.New64a()
	h.Write(body)
	return fmt.Sprintf(`W/"%x-%x"`, h.Sum64(), len(body))
}

func cacheControl(config CacheConfig) string {
	if config.NoStore {
		return "no-store"
	}
	scope := "public"
	if config.Private {
		scope = "private"
	}
	return fmt.Sprintf("%s, max-age=%d", scope, config.MaxAge)
}

// etagMatches evaluates an If-None-Match header against the computed tag.
// Handles comma-separated candidate lists, the W/ prefix on either side, and
// the "*" wildcard.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}
