package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type ctxDeviceKey struct{}

var errUnauthenticated = errors.New("unauthenticated")

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := a.tokenSvc.ParseToken(token)
		if err != nil {
			a.log.WithError(err).Debug("rejected api token")
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), ctxDeviceKey{}, claims.DeviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceID(ctx context.Context) string {
	id, _ := ctx.Value(ctxDeviceKey{}).(string)
	return id
}
