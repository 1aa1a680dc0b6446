package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/middleware"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/permission"
)

// Server is the public HTTP surface: the auth endpoints plus the middleware
// chain that protected routes of embedding services hang off.
type Server struct {
	router        *mux.Router
	authHandlers  *AuthHandlers
	authenticator *middleware.Authenticator
	resolver      *permission.Resolver
	metrics       *observability.Metrics
	logger        *observability.Logger
}

// NewServer wires the auth API.
func NewServer(service *auth.Service, tokens *auth.Manager, resolver *permission.Resolver, metrics *observability.Metrics, logger *observability.Logger) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		authHandlers:  NewAuthHandlers(service, metrics),
		authenticator: middleware.NewAuthenticator(tokens, metrics),
		resolver:      resolver,
		metrics:       metrics,
		logger:        logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the auth routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID(s.logger))
	if s.metrics != nil {
		s.router.Use(middleware.Metrics(s.metrics))
	}

	// Public routes
	s.router.HandleFunc("/auth/captcha", s.authHandlers.issueCaptcha).Methods("GET")
	s.router.HandleFunc("/auth/login", s.authHandlers.login).Methods("POST")
	s.router.HandleFunc("/auth/refresh", s.authHandlers.refresh).Methods("POST")

	// Logout needs a valid access token to know what to revoke
	s.router.Handle("/auth/logout",
		s.authenticator.Handler(http.HandlerFunc(s.authHandlers.logout))).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Protect wraps handler with token validation and a permission check, for
// embedding services registering their own routes behind this auth core.
func (s *Server) Protect(perm string, handler http.Handler) http.Handler {
	return s.authenticator.Handler(
		middleware.RequirePermission(s.resolver, s.metrics, perm)(handler))
}

// Router exposes the underlying router so embedding services can register
// additional routes.
func (s *Server) Router() *mux.Router {
	return s.router
}
