package adapthttp

import (
	"net/http"

	"fintrack/internal/app"
	"fintrack/internal/logging"
)

// Options configures the HTTP adapter.
type Options struct {
	// WebDir holds the static front end. Empty disables static serving.
	WebDir string
	// Production marks session cookies Secure.
	Production bool
	// OIDC enables single sign-on when non-nil and Enabled.
	OIDC *OIDCConfig
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth    *app.AuthService
	tx      *app.TransactionService
	summary *app.SummaryService
	opts    Options
	log     logging.Logger
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, tx *app.TransactionService, summary *app.SummaryService, opts Options, log logging.Logger) *Server {
	if opts.OIDC == nil {
		opts.OIDC = &OIDCConfig{}
	}
	return &Server{auth: auth, tx: tx, summary: summary, opts: opts, log: log}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/session", s.handleSession)
	api.HandleFunc("/auth/config", s.handleConfig)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)
	api.HandleFunc("/auth/account", s.handleSwitchAccount)

	api.Handle("/accounts", s.requireSession(http.HandlerFunc(s.handleAccounts)))

	api.Handle("/transactions", s.requireSession(http.HandlerFunc(s.handleTransactionCreate)))
	api.Handle("/transactions/recent", s.requireSession(http.HandlerFunc(s.handleTransactionsRecent)))
	api.Handle("/transactions/undo-last", s.requireSession(http.HandlerFunc(s.handleTransactionUndoLast)))

	api.Handle("/summary/daily", s.requireSession(http.HandlerFunc(s.handleSummaryDaily)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	if s.opts.WebDir != "" {
		root.Handle("/", spaFromDisk(s.opts.WebDir))
	}

	return s.loggingMiddleware(withNoCache(root))
}
