// Package httpapi exposes the board over HTTP: a JSON API under /api, the
// attachment streaming route and the two static page shells. Routing is chi,
// CORS is go-chi/cors, sessions ride an HttpOnly JWT cookie.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dkorolev/slateboard/internal/logging"
	"github.com/dkorolev/slateboard/internal/server/config"
	"github.com/dkorolev/slateboard/internal/server/services"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "board_session"

// Server wires the services into an http.Server.
type Server struct {
	cfg         *config.Config
	logger      logging.Logger
	identity    *services.IdentityService
	board       *services.BoardService
	attachments *services.AttachmentService
	http        *http.Server
}

func NewServer(cfg *config.Config, logger logging.Logger,
	identity *services.IdentityService, board *services.BoardService,
	attachments *services.AttachmentService) *Server {

	s := &Server{
		cfg:         cfg,
		logger:      logger.With("module", "httpapi"),
		identity:    identity,
		board:       board,
		attachments: attachments,
	}
	s.http = &http.Server{
		Addr:              cfg.EndpointAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed so tests can drive it through httptest
// without binding a socket.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Post("/api/generate-key", s.handleGenerateKey)
	r.Post("/api/login", s.handleLogin)
	r.Get("/api/posts", s.handleListPosts)
	r.Get("/api/media/gifs", s.handleListGifs)
	r.Get("/files/{fileID}", s.handleServeFile)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/api/logout", s.handleLogout)
		r.Get("/api/user", s.handleCurrentUser)
		r.Post("/api/post", s.handleCreatePost)
		r.Post("/api/comment", s.handleCreateComment)
	})

	r.Get("/", s.handleIndex)
	r.With(s.requirePageAuth).Get("/board", s.handleBoard)

	if s.cfg.PublicDir != "" {
		assets := http.StripPrefix("/assets/", http.FileServer(http.Dir(s.cfg.PublicDir)))
		r.Get("/assets/*", assets.ServeHTTP)
	}
	if s.cfg.MediaDir != "" {
		media := http.StripPrefix("/media/", http.FileServer(http.Dir(s.cfg.MediaDir)))
		r.Get("/media/*", media.ServeHTTP)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info(shutdownCtx, "http server shutting down")
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// A valid session skips the auth page.
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if _, err := s.identity.UserIDFromToken(cookie.Value); err == nil {
			http.Redirect(w, r, "/board", http.StatusFound)
			return
		}
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.ViewsDir, "auth.html"))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.cfg.ViewsDir, "index.html"))
}
