package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	oidcStateCookie = "oidc_state"
	oidcNonceCookie = "oidc_nonce"
)

// OIDCLoginHandler starts the provider handshake: a fresh state and nonce are
// pinned in short-lived cookies and the client is redirected to the provider.
func (s *Server) OIDCLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.New().String()
		nonce := uuid.New().String()

		setHandshakeCookie(w, oidcStateCookie, state)
		setHandshakeCookie(w, oidcNonceCookie, nonce)
		http.Redirect(w, r, s.identity.AuthCodeURL(state, nonce), http.StatusFound)
	}
}

// OIDCCallbackHandler completes the handshake. The state must round-trip
// through the cookie, the code is exchanged and the ID token verified against
// the pinned nonce, and only then does the verified email reach the token
// core.
func (s *Server) OIDCCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateCookie, err := r.Cookie(oidcStateCookie)
		if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
			writeJSONError(w, http.StatusBadRequest, "state mismatch")
			return
		}
		nonce := ""
		if nonceCookie, err := r.Cookie(oidcNonceCookie); err == nil {
			nonce = nonceCookie.Value
		}
		clearHandshakeCookie(w, oidcStateCookie)
		clearHandshakeCookie(w, oidcNonceCookie)

		ident, err := s.identity.Exchange(r.Context(), r.URL.Query().Get("code"), nonce)
		if err != nil {
			s.logger.Warn().Err(err).Msg("oidc exchange failed")
			writeJSONError(w, http.StatusUnauthorized, "identity verification failed")
			return
		}

		pair, err := s.auth.LoginExternal(r.Context(), ident.Email, deviceInfo(r))
		if err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

func setHandshakeCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/oidc",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearHandshakeCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     "/auth/oidc",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
