package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/sweetshop/api/internal/auth"
)

type ctxKey int

const identityKey ctxKey = iota

// Authenticate resolves the bearer token into an Identity and stores
// it in the request context. Role checks stay in the services; this
// middleware only answers "who is calling".
func Authenticate(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			id, err := svc.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeErr(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
		})
	}
}

func identityFrom(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(identityKey).(auth.Identity)
	return id
}
