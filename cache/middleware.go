package cache

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const htmlContentType = "text/html; charset=utf-8"

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// KeyFunc derives the cache key of a request. An empty key skips caching.
type KeyFunc func(c *gin.Context) string

// RequestKey keys by method and full request URI.
func RequestKey(c *gin.Context) string {
	return Key(c.Request.Method, c.Request.URL.RequestURI())
}

// CacheMiddleware serves GET pages from store and stores successful HTML
// responses. A nil store disables it.
func CacheMiddleware(store Store, ttl time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := keyFn(c)
		if key == "" {
			c.Next()
			return
		}

		if cached, found := store.Get(c.Request.Context(), key); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, htmlContentType, cached)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK &&
			c.Writer.Header().Get("Content-Type") == htmlContentType {
			if err := store.Set(c.Request.Context(), key, writer.body.Bytes(), ttl); err != nil {
				log.Printf("cache: failed to store %s: %v", c.Request.URL.Path, err)
			}
		}
	}
}

// InvalidateMiddleware purges store after every successful request that
// is not a GET or HEAD. A nil store disables it.
func InvalidateMiddleware(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if store == nil {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		if err := store.Purge(c.Request.Context()); err != nil {
			log.Printf("cache: failed to purge after %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}
	}
}
