package middleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/vidfriends/vidfeed/internal/logging"
)

type gzipBody struct {
	*gzip.Reader
	raw io.Closer
}

func (b gzipBody) Close() error {
	err := b.Reader.Close()
	if rawErr := b.raw.Close(); err == nil {
		err = rawErr
	}
	return err
}

// Decompress transparently inflates gzip encoded request bodies, which the
// feed client sends for large media uploads. Other encodings are rejected
// with 415.
func Decompress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
		switch encoding {
		case "", "identity":
			next.ServeHTTP(w, r)
			return
		case "gzip":
		default:
			http.Error(w, "unsupported content encoding", http.StatusUnsupportedMediaType)
			return
		}

		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			logging.FromContext(r.Context()).Warn("invalid gzip body", "error", err)
			http.Error(w, "invalid gzip body", http.StatusBadRequest)
			return
		}

		r.Body = gzipBody{Reader: zr, raw: r.Body}
		r.Header.Del("Content-Encoding")
		r.Header.Del("Content-Length")
		r.ContentLength = -1
		next.ServeHTTP(w, r)
	})
}

// Chain applies middlewares so that the first one listed runs outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
