package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	apperrors "github.com/veraxlabs/go-access-server/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	TokenID string `json:"token_id"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		pair, err := s.auth.Login(r.Context(), req.Email, req.Password, deviceInfo(r))
		if err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		pair, err := s.auth.Refresh(r.Context(), req.RefreshToken, deviceInfo(r))
		if err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		claims := ClaimsFromContext(r.Context())
		if err := s.auth.Logout(r.Context(), claims, req.TokenID); err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		count, err := s.auth.LogoutAll(r.Context(), claims.Subject)
		if err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"revoked": count})
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		claims := ClaimsFromContext(r.Context())
		if err := s.auth.ChangePassword(r.Context(), claims.Subject, req.OldPassword, req.NewPassword); err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// writeAuthError maps the core's error taxonomy to HTTP. Infrastructure
// faults stay distinguishable from bad tokens: the former may be retried by
// the caller, the latter is final.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	s.logTokenRejection(r, err)
	switch {
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "service degraded, retry later")
	case errors.Is(err, apperrors.ErrReuseDetected):
		writeJSONError(w, http.StatusUnauthorized, "session revoked, please log in again")
	case errors.Is(err, apperrors.ErrTokenExpired):
		writeJSONError(w, http.StatusUnauthorized, "token expired, please log in again")
	case errors.Is(err, apperrors.ErrWrongTokenClass), errors.Is(err, apperrors.ErrTokenMalformed):
		writeJSONError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, apperrors.ErrUserBlocked), errors.Is(err, apperrors.ErrUserNotVerified):
		writeJSONError(w, http.StatusForbidden, "account not permitted to log in")
	case errors.Is(err, apperrors.ErrUserNotFound):
		writeJSONError(w, http.StatusUnauthorized, "invalid token")
	default:
		writeJSONError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) logTokenRejection(r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrReuseDetected):
		s.logger.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).
			Msg("refresh token reuse detected, all sessions revoked")
	case errors.Is(err, apperrors.ErrWrongTokenClass):
		s.logger.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).
			Msg("token presented with wrong class")
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("token store unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
