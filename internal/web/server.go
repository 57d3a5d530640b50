// Package web provides the HTTP server: the JSON API, signed file downloads
// and the server-rendered pages.
package web

import (
	"database/sql"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/house-market/internal/analytics"
	"github.com/evcraddock/house-market/internal/auth"
	"github.com/evcraddock/house-market/internal/cache"
	"github.com/evcraddock/house-market/internal/email"
	"github.com/evcraddock/house-market/internal/inquiry"
	"github.com/evcraddock/house-market/internal/logging"
	"github.com/evcraddock/house-market/internal/preference"
	"github.com/evcraddock/house-market/internal/profile"
	"github.com/evcraddock/house-market/internal/property"
	"github.com/evcraddock/house-market/internal/storage"
	"github.com/evcraddock/house-market/internal/viewguard"
	"github.com/evcraddock/house-market/internal/viewing"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the external resources the server is built from.
type Deps struct {
	DB     *sql.DB
	Config auth.Config
	Cache  cache.Store
	Files  *storage.LocalStore
}

// Server is the house-market HTTP server.
type Server struct {
	config    auth.Config
	accounts  *auth.AccountStore
	codes     *auth.CodeStore
	sessions  *auth.SessionStore
	tokens    *auth.TokenIssuer
	passkeys  *passkeyHandlers
	limiter   *auth.LoginLimiter
	profiles  *profile.Store
	propRepo  *property.Repository
	props     *property.Service
	inquiries *inquiry.Service
	viewings  *viewing.Service
	prefs     *preference.Store
	analytics *analytics.Service
	files     *storage.LocalStore

	templates *template.Template
	mux       *http.ServeMux
	handler   http.Handler
}

// NewServer wires the services over deps and registers all routes.
func NewServer(deps Deps) (*Server, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	cfg := deps.Config
	codes := auth.NewCodeStore(deps.DB)
	sessions := auth.NewSessionStore(deps.DB, strings.HasPrefix(cfg.BaseURL, "https://"))
	passkeyStore := auth.NewPasskeyStore(deps.DB)

	wan, err := auth.NewWebAuthn(cfg)
	if err != nil {
		return nil, err
	}

	notifier := email.NewNotifier(cfg.SMTP(), cfg.DevMode, cfg.BaseURL)
	propRepo := property.NewRepository(deps.DB)

	s := &Server{
		config:    cfg,
		accounts:  auth.NewAccountStore(deps.DB, codes, auth.NewMailer(cfg)),
		codes:     codes,
		sessions:  sessions,
		tokens:    auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL),
		limiter:   auth.NewLoginLimiter(),
		profiles:  profile.NewStore(deps.DB),
		propRepo:  propRepo,
		props:     property.NewService(propRepo, deps.Files, viewguard.New(deps.Cache, auth.SessionExpiry), deps.Cache),
		inquiries: inquiry.NewService(inquiry.NewRepository(deps.DB), propRepo, notifier),
		viewings:  viewing.NewService(viewing.NewRepository(deps.DB), propRepo, notifier),
		prefs:     preference.NewStore(deps.DB),
		analytics: analytics.NewService(deps.DB),
		files:     deps.Files,
		templates: tmpl,
		mux:       http.NewServeMux(),
	}
	s.passkeys = newPasskeyHandlers(s, wan, passkeyStore)

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))
	s.mux.Handle("GET "+storage.FilesPrefix, storage.Handler(deps.Files))
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.registerAPI()
	s.registerPages()

	var h http.Handler = s.mux
	h = auth.GatePages(auth.DefaultPageRoutes(), h)
	h = auth.Authenticate(s.tokens, s.sessions, h)
	s.handler = logging.RequestLogger(h)

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// HTTPServer returns an http.Server for addr with the server's timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Cleanup removes expired sessions and verification codes.
func (s *Server) Cleanup() error {
	if err := s.sessions.Cleanup(); err != nil {
		return err
	}
	return s.codes.Cleanup()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// api wraps an API handler so that it requires a signed-in user.
func api(fn http.HandlerFunc) http.Handler {
	return auth.RequireUser(fn)
}

func (s *Server) registerAPI() {
	m := s.mux

	m.HandleFunc("POST /api/auth/signup", s.apiSignUp)
	m.HandleFunc("POST /api/auth/confirm", s.apiConfirm)
	m.HandleFunc("POST /api/auth/resend", s.apiResend)
	m.HandleFunc("POST /api/auth/signin", s.apiSignIn)
	m.HandleFunc("POST /api/auth/signout", s.apiSignOut)
	m.HandleFunc("POST /api/auth/refresh", s.apiRefresh)
	m.HandleFunc("POST /api/auth/forgot", s.apiForgot)
	m.HandleFunc("POST /api/auth/reset", s.apiReset)
	m.Handle("GET /api/auth/me", api(s.apiMe))

	m.Handle("POST /api/passkeys/register/begin", api(s.passkeys.handleBeginRegistration))
	m.Handle("POST /api/passkeys/register/finish", api(s.passkeys.handleFinishRegistration))
	m.Handle("GET /api/passkeys", api(s.passkeys.handleList))
	m.Handle("DELETE /api/passkeys/{id}", api(s.passkeys.handleDelete))
	m.HandleFunc("POST /api/passkeys/login/begin", s.passkeys.handleBeginLogin)
	m.HandleFunc("POST /api/passkeys/login/finish", s.passkeys.handleFinishLogin)

	m.Handle("GET /api/profile", api(s.apiMe))
	m.Handle("PUT /api/profile", api(s.apiUpdateProfile))

	m.HandleFunc("GET /api/properties", s.apiListProperties)
	m.Handle("POST /api/properties", api(s.apiCreateProperty))
	m.Handle("GET /api/properties/mine", api(s.apiMyProperties))
	m.HandleFunc("GET /api/properties/{id}", s.apiGetProperty)
	m.Handle("PUT /api/properties/{id}", api(s.apiUpdateProperty))
	m.Handle("DELETE /api/properties/{id}", api(s.apiDeleteProperty))
	m.HandleFunc("POST /api/properties/{id}/view", s.apiViewProperty)

	m.Handle("POST /api/properties/{id}/inquiries", api(s.apiCreateInquiry))
	m.Handle("GET /api/inquiries", api(s.apiListInquiries))
	m.Handle("GET /api/inquiries/{id}", api(s.apiGetInquiry))
	m.Handle("PATCH /api/inquiries/{id}", api(s.apiUpdateInquiry))
	m.Handle("DELETE /api/inquiries/{id}", api(s.apiDeleteInquiry))

	m.Handle("POST /api/properties/{id}/viewings", api(s.apiCreateViewing))
	m.Handle("GET /api/viewings", api(s.apiListViewings))
	m.Handle("GET /api/viewings/{id}", api(s.apiGetViewing))
	m.Handle("PATCH /api/viewings/{id}", api(s.apiUpdateViewing))
	m.Handle("DELETE /api/viewings/{id}", api(s.apiDeleteViewing))

	m.Handle("GET /api/preferences", api(s.apiGetPreferences))
	m.Handle("PUT /api/preferences/settings", api(s.apiUpdatePreferenceSettings))
	m.Handle("POST /api/preferences/searches", api(s.apiRecordSearch))
	m.Handle("POST /api/preferences/{list}/{id}", api(s.apiTogglePreference))
	m.Handle("PUT /api/preferences/{list}", api(s.apiReplacePreference))

	m.Handle("GET /api/analytics", api(s.apiAnalytics))

	m.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "not found", http.StatusNotFound)
	})
}
