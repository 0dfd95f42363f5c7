package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/Adrijan-Petek/onchain-search-boolean-prototype/pkg/logger"
)

// RequestID attaches a request ID to every request, honouring an incoming
// X-Request-ID header and echoing the ID on the response. Handlers pick the
// ID up through logger.FromContext.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = newRequestID()
		}
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}
