package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/inventory-core/internal/auth"
)

type createUserRequest struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

type updateUserRequest struct {
	Email    *string    `json:"email,omitempty"`
	Password *string    `json:"password,omitempty"`
	Role     *auth.Role `json:"role,omitempty"`
	IsActive *bool      `json:"isActive,omitempty"`
}

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userRepo.List(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleCreateUser creates a new user account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeValidationError(w, "username, email, and password are required")
		return
	}
	if !auth.IsValidUsername(req.Username) {
		writeValidationError(w, "username must be 1-50 characters: letters, digits, dots, hyphens, underscores")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeValidationError(w, "password must be at least 8 characters")
		return
	}

	if req.Role == "" {
		req.Role = auth.RoleUser
	}
	if !auth.IsValidRole(req.Role) {
		writeValidationError(w, "invalid role: must be ADMIN, MANAGER, USER, or VIEWER")
		return
	}

	principal := principalFromContext(r.Context())

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}

	if err := s.userRepo.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeConflict(w, "username or email already in use")
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role, "created_by", principal.UserID)
	s.recorder.record(auditEntry{
		Action:     "create",
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     principal.UserID,
		Details: map[string]any{
			"username": user.Username,
			"role":     user.Role,
		},
	})

	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user failed", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser modifies a user's mutable fields.
//
// Self-protection: a user cannot deactivate their own account or change
// their own role. Role changes and deactivation revoke the target's
// sessions so the old authority cannot be renewed.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) { //nolint:gocognit,gocyclo // field patching + self-protection guards
	id := chi.URLParam(r, "id")
	principal := principalFromContext(r.Context())

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user for update failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	if req.IsActive != nil && !*req.IsActive && id == principal.UserID {
		writeForbidden(w, ErrCodeForbidden, "cannot deactivate your own account")
		return
	}
	if req.Role != nil && id == principal.UserID && *req.Role != principal.Role {
		writeForbidden(w, ErrCodeForbidden, "cannot change your own role")
		return
	}
	if req.Role != nil && !auth.IsValidRole(*req.Role) {
		writeValidationError(w, "invalid role: must be ADMIN, MANAGER, USER, or VIEWER")
		return
	}
	if req.Password != nil && len(*req.Password) < minPasswordLength {
		writeValidationError(w, "password must be at least 8 characters")
		return
	}

	roleChanged := req.Role != nil && *req.Role != user.Role
	deactivated := req.IsActive != nil && !*req.IsActive && user.IsActive

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeConflict(w, "email already in use")
			return
		}
		s.logger.Error("update user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.logger.Error("hash password failed", "error", err)
			writeInternalError(w, "failed to update password")
			return
		}
		if err := s.userRepo.UpdatePassword(r.Context(), id, hash); err != nil {
			s.logger.Error("update password failed", "error", err)
			writeInternalError(w, "failed to update password")
			return
		}
	}

	// A password or authority change invalidates outstanding sessions
	if roleChanged || deactivated || req.Password != nil {
		if err := s.tokenRepo.RevokeAllForUser(r.Context(), id); err != nil {
			s.logger.Error("revoke sessions after update failed", "error", err)
		}
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", principal.UserID)
	s.recorder.record(auditEntry{
		Action:     "update",
		EntityType: "user",
		EntityID:   id,
		UserID:     principal.UserID,
	})

	writeJSON(w, http.StatusOK, user)
}

// handleDeactivateUser disables a user account and revokes its sessions.
// The row is kept so the audit history stays attributable.
func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	principal := principalFromContext(r.Context())

	if id == principal.UserID {
		writeForbidden(w, ErrCodeForbidden, "cannot deactivate your own account")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user for deactivate failed", "error", err)
		writeInternalError(w, "failed to deactivate user")
		return
	}

	if err := s.userRepo.Deactivate(r.Context(), id); err != nil {
		s.logger.Error("deactivate user failed", "error", err)
		writeInternalError(w, "failed to deactivate user")
		return
	}

	if err := s.tokenRepo.RevokeAllForUser(r.Context(), id); err != nil {
		s.logger.Error("revoke sessions after deactivate failed", "error", err)
	}

	s.logger.Info("user deactivated", "user_id", id, "deactivated_by", principal.UserID)
	s.recorder.record(auditEntry{
		Action:     "delete",
		EntityType: "user",
		EntityID:   id,
		UserID:     principal.UserID,
		Details: map[string]any{
			"username": user.Username,
		},
	})

	w.WriteHeader(http.StatusNoContent)
}
