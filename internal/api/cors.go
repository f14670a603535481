package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// corsHeaders are the precomputed CORS response headers.
type corsHeaders [][2]string

func newCORSHeaders(origin string) corsHeaders {
	if origin == "" {
		origin = "*"
	}
	return corsHeaders{
		{"Access-Control-Allow-Origin", origin},
		{"Access-Control-Allow-Methods", strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")},
		{"Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Last-Event-ID"},
		{"Access-Control-Max-Age", strconv.Itoa(86400)},
	}
}

// middleware sets the headers on huma routes.
func (h corsHeaders) middleware(ctx huma.Context, next func(huma.Context)) {
	for _, kv := range h {
		ctx.SetHeader(kv[0], kv[1])
	}
	next(ctx)
}

// preflight answers OPTIONS on any path before routing and passes every
// other method to next, so unknown paths still get 404.
func (h corsHeaders) preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		for _, kv := range h {
			w.Header().Set(kv[0], kv[1])
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
