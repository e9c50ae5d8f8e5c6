package request

import (
	"net/http"
)

// BodyLimit returns middleware that limits the size of request bodies.
// Requests that announce a Content-Length above maxBytes are refused with 413 before
// the handler runs; everything else is wrapped in http.MaxBytesReader so oversized
// chunked uploads fail on read.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
