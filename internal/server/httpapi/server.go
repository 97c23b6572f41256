// Package httpapi exposes the session operations over HTTP. It owns request
// parsing, status-code mapping, and the access-token guard; all business
// rules live in the services layer.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akarpov87/authkeeper/internal/logging"
	"github.com/akarpov87/authkeeper/internal/server/services"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address   string
	logger    logging.Logger
	sessions  *services.SessionService
	jwtSecret []byte
}

func NewServer(address string, l logging.Logger, sessions *services.SessionService, secretKey string) *Server {
	return &Server{
		address:   address,
		logger:    l.With("module", "httpapi"),
		sessions:  sessions,
		jwtSecret: []byte(secretKey),
	}
}

// Router builds the route table. The /api/user subtree requires a valid
// access token; the token's subject is the only account those handlers
// operate on.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", s.handleLogout).Methods(http.MethodPost)

	user := r.PathPrefix("/api/user").Subrouter()
	user.Use(s.authMiddleware)
	user.HandleFunc("/password", s.handleUpdatePassword).Methods(http.MethodPut)
	user.HandleFunc("/history", s.handleLoginHistory).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
