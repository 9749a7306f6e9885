// Package middleware provides HTTP middleware: caller authentication,
// request IDs, and rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"ehrledger/internal/domain"
)

// CallerResolver resolves the request's (actor_id, role) pair and stores it
// in the context as a domain.Caller.
//
// A valid Bearer JWT (HS256, sub + role claims) is authoritative. Without
// one, identity falls back to the user_id/role request parameters the
// observed clients send; handlers fail closed when neither is present.
func CallerResolver(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller, ok := callerFromBearer(r, jwtSecret); ok {
				ctx := domain.WithCaller(r.Context(), caller)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerFromBearer(r *http.Request, secret []byte) (domain.Caller, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return domain.Caller{}, false
	}
	tokenStr := strings.TrimPrefix(auth, "Bearer ")

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Caller{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Caller{}, false
	}
	sub, _ := claims["sub"].(string)
	roleStr, _ := claims["role"].(string)
	role, ok := domain.ParseRole(roleStr)
	if sub == "" || !ok {
		return domain.Caller{}, false
	}
	return domain.Caller{ID: sub, Role: role}, true
}
