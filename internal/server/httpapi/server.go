// Package httpapi serves the REST API: registration, login, profile,
// search, health and the debug endpoints. The websocket endpoint is mounted
// on the same mux.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/services"
)

// UserService is the identity side of the API.
type UserService interface {
	Register(ctx context.Context, name, email, mobile, password string) (models.PublicUser, error)
	Login(ctx context.Context, emailOrMobile, password string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	VerifyToken(token string) (auth.Principal, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (models.PublicUser, error)
	Search(ctx context.Context, term, requesterID string) ([]models.PublicUser, error)
}

// ChatService is the relay side of the API.
type ChatService interface {
	Stats(ctx context.Context) (models.Stats, error)
	DebugUsers(ctx context.Context) (*models.DebugUsers, error)
	DebugConnections(ctx context.Context) []models.Binding
	DebugUser(ctx context.Context, userID string) (*models.UserDebug, error)
	Reset(ctx context.Context) error
}

// Server is the HTTP front of the relay.
type Server struct {
	users   UserService
	chat    ChatService
	ws      http.Handler
	origins map[string]struct{}
	logger  logging.Logger

	httpServer *http.Server
}

// NewServer builds the API. ws serves GET /ws and may be nil.
func NewServer(users UserService, chat ChatService, ws http.Handler, allowedOrigins []string, logger logging.Logger) *Server {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &Server{
		users:   users,
		chat:    chat,
		ws:      ws,
		origins: origins,
		logger:  logger.With("module", "http"),
	}
}

// Handler returns the routed handler with CORS, logging and recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.Handle("PUT /api/user/profile", s.requireToken(http.HandlerFunc(s.handleProfile)))
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/debug/users", s.handleDebugUsers)
	mux.HandleFunc("GET /api/debug/connections", s.handleDebugConnections)
	mux.HandleFunc("GET /api/debug/user/{userID}", s.handleDebugUser)
	mux.HandleFunc("POST /api/debug/reset", s.handleReset)

	if s.ws != nil {
		mux.Handle("GET /ws", s.ws)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})

	return s.recoverer(s.logRequests(s.cors(mux)))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info(ctx, "HTTP server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
