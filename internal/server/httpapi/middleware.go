package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/akarpov87/authkeeper/internal/common"
	"github.com/akarpov87/authkeeper/internal/server/auth"
	"github.com/google/uuid"
)

type ctxKey string

const (
	subjectKey   ctxKey = "subject"
	requestIDKey ctxKey = "requestID"
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware tags every request with an id, echoed in the response
// headers for correlation.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		s.logger.Debug(ctx, "request", "request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authMiddleware requires a bearer access token. Refresh tokens are refused
// here: their only audience is the refresh and logout endpoints.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimPrefix(header, common.BearerPrefix)

		claims, err := auth.ParseToken(tokenString, s.jwtSecret)
		if err != nil || claims.Kind != auth.KindAccess {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func subjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey).(string)
	return subject
}
