package server

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/veraxlabs/go-access-server/auth"
	"github.com/veraxlabs/go-access-server/identity"
	"github.com/veraxlabs/go-access-server/internal/config"
	"github.com/veraxlabs/go-access-server/users"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	auth     *auth.Service
	users    users.UserRepo
	registry *prometheus.Registry
	identity *identity.Verifier
	logger   zerolog.Logger
}

type Option func(*Server)

// WithIdentityVerifier enables the OIDC login routes.
func WithIdentityVerifier(verifier *identity.Verifier) Option {
	return func(s *Server) {
		s.identity = verifier
	}
}

func New(cfg config.Config, authService *auth.Service, userRepo users.UserRepo, registry *prometheus.Registry, options ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		auth:     authService,
		users:    userRepo,
		registry: registry,
		env:      cfg.GetEnv(),
		logger:   zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger(),
	}

	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	s.RegisterRouteFunc("POST /auth/login", ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteFunc("POST /auth/refresh", ChainMiddleware(s.RefreshHandler(), api...))
	s.RegisterRouteFunc("POST /auth/logout", ChainMiddleware(s.LogoutHandler(), s.authenticated()...))
	s.RegisterRouteFunc("POST /auth/logout-all", ChainMiddleware(s.LogoutAllHandler(), s.authenticated()...))
	s.RegisterRouteFunc("POST /auth/password", ChainMiddleware(s.ChangePasswordHandler(), s.authenticated()...))

	if s.identity != nil {
		s.RegisterRouteFunc("GET /auth/oidc/login", ChainMiddleware(s.OIDCLoginHandler(), api...))
		s.RegisterRouteFunc("GET /auth/oidc/callback", ChainMiddleware(s.OIDCCallbackHandler(), api...))
	}

	s.RegisterRouteFunc("GET /healthz", s.HealthHandler())
	if s.registry != nil {
		handler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
		s.RegisterRouteFunc("GET /metrics", handler.ServeHTTP)
	}
}

func (s *Server) authenticated() []func(http.HandlerFunc) http.HandlerFunc {
	return append(s.APIMiddleware(), s.RequireAccessToken)
}

func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
	}
}
