package auth

import (
	"net/http"
	"slices"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// Service assembles the auth handlers behind a single HTTP handler.
type Service struct {
	Local      *LocalAuth
	OAuth      *OAuthLogin
	Middleware *Middleware

	// Sessions, when set, wraps the handler with session load/save
	Sessions *scs.SessionManager

	// CORSOrigins lists the origins allowed to call the API. Empty means no
	// CORS headers are emitted.
	CORSOrigins []string
}

// Handler returns the routed HTTP handler for the whole service.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleHome).Methods("GET")
	r.HandleFunc("/api/health", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/register", s.Local.HandleRegister).Methods("POST")
	api.HandleFunc("/login", s.Local.HandleLogin).Methods("POST")
	api.HandleFunc("/request-password-reset", s.Local.HandleForgotPassword).Methods("POST")
	api.HandleFunc("/reset-password", s.Local.HandleResetPassword).Methods("POST")
	api.HandleFunc("/verify-email", s.Local.HandleVerifyEmail).Methods("GET")

	api.Handle("/me", s.Middleware.RequireUser(http.HandlerFunc(s.Local.HandleMe))).Methods("GET")
	api.Handle("/logout", s.Middleware.RequireUser(http.HandlerFunc(s.Local.HandleLogout))).Methods("POST")
	api.Handle("/resend-verification", s.Middleware.RequireUser(http.HandlerFunc(s.Local.HandleResendVerification))).Methods("POST")

	api.HandleFunc("/google/authorize", s.OAuth.HandleAuthorize).Methods("GET")
	api.HandleFunc("/google/callback", s.OAuth.HandleCallback).Methods("GET")
	api.HandleFunc("/google/verify", s.OAuth.HandleVerifyToken).Methods("POST")

	var handler http.Handler = r
	handler = s.corsMiddleware(handler)
	if s.Sessions != nil {
		handler = s.Sessions.LoadAndSave(handler)
	}
	return handler
}

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "auth",
		"status":  "running",
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

// corsMiddleware reflects allowed origins and answers preflights for the
// browser clients of the API.
func (s *Service) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(s.CORSOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
