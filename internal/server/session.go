package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// sessionHeader carries the caller's opaque session token. The server never
// interprets it beyond using it as a key.
const sessionHeader = "X-Session-Key"

type sessionKeyCtx struct{}

// withSession resolves the session key for shopping list routes. A caller
// without one is minted a fresh key, echoed back so the client can hold on
// to it.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(sessionHeader)
		if key == "" {
			key = uuid.NewString()
		}
		w.Header().Set(sessionHeader, key)

		ctx := context.WithValue(r.Context(), sessionKeyCtx{}, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionKey(ctx context.Context) string {
	key, _ := ctx.Value(sessionKeyCtx{}).(string)
	return key
}
