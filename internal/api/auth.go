package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shelfwise/inventory-core/internal/auth"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// refreshRequest is the request body for POST /auth/refresh and /auth/logout.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// sessionResponse is the response body for successful login and refresh.
type sessionResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         *auth.User `json:"user"`
}

// handleLogin authenticates a user and establishes a session.
//
// Invalid credentials get 401 INVALID_CREDENTIALS; disabled accounts get
// 403 ACCOUNT_DISABLED. A new session supersedes any previous one for
// the same user.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeValidationError(w, "username and password are required")
		return
	}

	pair, user, err := s.authService.Login(r.Context(), req.Username, req.Password, r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeUnauthorized(w, ErrCodeInvalidCredentials, "invalid username or password")
		case errors.Is(err, auth.ErrUserInactive):
			writeForbidden(w, ErrCodeAccountDisabled, "account is disabled")
		default:
			s.logger.Error("login failed", "error", err)
			writeInternalError(w, "login failed")
		}
		return
	}

	s.recorder.record(auditEntry{
		Action:     "login",
		EntityType: "session",
		UserID:     user.ID,
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	})
}

// handleRefresh rotates a session: the presented refresh token is
// consumed and a fresh pair is issued. Any invalid token gets 401
// INVALID_REFRESH_TOKEN with no further detail.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeValidationError(w, "refreshToken is required")
		return
	}

	pair, user, err := s.authService.Refresh(r.Context(), req.RefreshToken, r.UserAgent())
	if err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) {
			writeUnauthorized(w, ErrCodeInvalidRefreshToken, "invalid or expired refresh token")
			return
		}
		s.logger.Error("refresh failed", "error", err)
		writeInternalError(w, "refresh failed")
		return
	}

	s.recorder.record(auditEntry{
		Action:     "refresh",
		EntityType: "session",
		UserID:     user.ID,
	})

	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	})
}

// handleLogout revokes the presented refresh token. Always returns 200:
// unknown and already-revoked tokens are indistinguishable from live
// ones, so logout cannot be used to probe token validity.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}

	if req.RefreshToken != "" {
		if err := s.authService.Logout(r.Context(), req.RefreshToken); err != nil {
			s.logger.Error("logout failed", "error", err)
			writeInternalError(w, "logout failed")
			return
		}
	}

	s.recorder.record(auditEntry{
		Action:     "logout",
		EntityType: "session",
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// meResponse is the response body for GET /auth/me.
type meResponse struct {
	User        *auth.User           `json:"user"`
	Permissions []auth.PermissionDef `json:"permissions"`
}

// handleMe returns the authenticated user's account and effective permissions.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if p == nil {
		writeUnauthorized(w, ErrCodeUnauthorized, "authentication required")
		return
	}

	user, err := s.authService.CurrentUser(r.Context(), p)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user no longer exists")
			return
		}
		s.logger.Error("loading current user failed", "error", err)
		writeInternalError(w, "failed to load user")
		return
	}

	perms, err := s.authService.PermissionsForRole(r.Context(), user.Role)
	if err != nil {
		s.logger.Error("loading permissions failed", "error", err)
		writeInternalError(w, "failed to load permissions")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: user, Permissions: perms})
}
