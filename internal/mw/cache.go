package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status int
	body   []byte
	ctype  string
}

// recordingWriter tees the response body so a successful reply can be
// replayed for the next reader.
type recordingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache is a middleware for in-memory caching of GET responses. Entries are
// keyed by full request URI, so an authorized read (different passcode query)
// never serves from a public reader's cache entry. Room status goes stale
// within seconds, so TTLs here are short; the point is absorbing widget
// refresh storms, not long-lived caching.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if hit, found := store.Get(key); found {
			resp := hit.(cachedResponse)
			if resp.ctype != "" {
				c.Writer.Header().Set("Content-Type", resp.ctype)
			}
			c.Writer.WriteHeader(resp.status)
			c.Writer.Write(resp.body)
			c.Abort()
			return
		}

		rec := &recordingWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		// Only successful responses are worth replaying.
		if rec.Status() >= 200 && rec.Status() < 300 {
			store.Set(key, cachedResponse{
				status: rec.Status(),
				body:   rec.body.Bytes(),
				ctype:  rec.Header().Get("Content-Type"),
			}, ttl)
		}
	}
}
