package adapthttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"travelstory/internal/app"
)

// Default per-minute budgets for rate limited routes.
const (
	DefaultAuthRateLimit   = 10
	DefaultUploadRateLimit = 30
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth    *app.AuthService
	stories *app.StoryService
	media   *app.MediaService
	log     *slog.Logger

	webDir       string
	mediaHandler http.Handler
	oidc         OIDCConfig
	corsOrigins  []string
	ping         func(context.Context) error

	limiter     RateLimiter
	authLimit   int
	uploadLimit int

	metrics *metrics
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, stories *app.StoryService, media *app.MediaService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		auth:        auth,
		stories:     stories,
		media:       media,
		log:         log,
		corsOrigins: []string{"*"},
		authLimit:   DefaultAuthRateLimit,
		uploadLimit: DefaultUploadRateLimit,
		metrics:     newMetrics(),
	}
}

// WithWebDir serves a single page app from dir on every unmatched path.
func (s *Server) WithWebDir(dir string) *Server {
	s.webDir = dir
	return s
}

// WithMediaHandler serves locally hosted media under /media/.
func (s *Server) WithMediaHandler(h http.Handler) *Server {
	s.mediaHandler = h
	return s
}

// WithOIDC enables single sign-on.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidc = cfg
	return s
}

// WithCORS restricts cross-origin requests to origins. "*" allows any.
func (s *Server) WithCORS(origins []string) *Server {
	s.corsOrigins = origins
	return s
}

// WithHealthCheck makes /health report 503 while ping fails.
func (s *Server) WithHealthCheck(ping func(context.Context) error) *Server {
	s.ping = ping
	return s
}

// WithRateLimiter limits login and signup per client IP and uploads per user.
// A limit of zero disables limiting for that group.
func (s *Server) WithRateLimiter(l RateLimiter, authPerMinute, uploadPerMinute int) *Server {
	s.limiter = l
	s.authLimit = authPerMinute
	s.uploadLimit = uploadPerMinute
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.handler())

	mux.HandleFunc("POST /create-account", s.withRateLimit("create-account", s.authLimit, rateLimitKeyIP, s.handleCreateAccount))
	mux.HandleFunc("POST /login", s.withRateLimit("login", s.authLimit, rateLimitKeyIP, s.handleLogin))
	mux.HandleFunc("GET /get-user", s.authMiddleware(s.handleGetUser))

	mux.HandleFunc("GET /auth/config", s.handleAuthConfig)
	mux.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	mux.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)

	mux.HandleFunc("POST /add-travel-story", s.authMiddleware(s.handleAddStory))
	mux.HandleFunc("GET /get-all-stories", s.authMiddleware(s.handleGetAllStories))
	mux.HandleFunc("GET /get-story/{id}", s.authMiddleware(s.handleGetStory))
	mux.HandleFunc("GET /search", s.authMiddleware(s.handleSearch))
	mux.HandleFunc("GET /travel-stories/filter", s.authMiddleware(s.handleFilterByDate))
	mux.HandleFunc("POST /edit-story/{id}", s.authMiddleware(s.handleEditStory))
	mux.HandleFunc("PUT /update-is-favourite/{id}", s.authMiddleware(s.handleUpdateFavourite))
	mux.HandleFunc("DELETE /delete-story/{id}", s.authMiddleware(s.handleDeleteStory))

	mux.HandleFunc("POST /image-upload", s.authMiddleware(
		s.withRateLimit("image-upload", s.uploadLimit, rateLimitKeyUser, s.handleImageUpload)))
	mux.HandleFunc("DELETE /delete-image/{publicId}", s.authMiddleware(s.handleDeleteImage))

	if s.mediaHandler != nil {
		mux.Handle("GET /media/", s.mediaHandler)
	}
	if s.webDir != "" {
		mux.Handle("/", spaFromDisk(s.webDir))
	}

	var h http.Handler = mux
	h = withNoCache(h)
	h = s.corsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.metrics.middleware(h)
	h = s.recoverMiddleware(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
