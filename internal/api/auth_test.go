package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/shelfwise/inventory-core/internal/auth"
)

func TestHandleLogin_Success(t *testing.T) {
	srv, db := testServer(t)
	router := srv.buildRouter()
	user := createTestUser(t, db, "alice", "testpass123", auth.RoleManager)

	resp := loginAs(t, router, "alice", "testpass123")

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("login should return both tokens")
	}
	if resp.User == nil || resp.User.ID != user.ID {
		t.Errorf("user = %+v, want ID %s", resp.User, user.ID)
	}
	if resp.User.PasswordHash != "" {
		t.Error("password hash must never be serialised")
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	srv, db := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, db, "alice", "testpass123", auth.RoleUser)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "wrongpass"},
		{"unknown user", "nobody", "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/auth/login", "",
				loginRequest{Username: tt.username, Password: tt.password})

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			if code := errorCode(t, w); code != ErrCodeInvalidCredentials {
				t.Errorf("error code = %q, want %q", code, ErrCodeInvalidCredentials)
			}
		})
	}
}

func TestHandleLogin_DisabledAccount(t *testing.T) {
	srv, db := testServer(t)
	router := srv.buildRouter()
	user := createTestUser(t, db, "disabled", "testpass123", auth.RoleUser)

	if err := auth.NewUserRepository(db).Deactivate(context.Background(), user.ID); err != nil {
		t.Fatalf("deactivating: %v", err)
	}

	w := doJSON(t, router, http.MethodPost, "/auth/login", "",
		loginRequest{Username: "disabled", Password: "testpass123"})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeAccountDisabled {
		t.Errorf("error code = %q, want %q", code, ErrCodeAccountDisabled)
	}
}

func TestHandleLogin_Validation(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/auth/login", "",
		loginRequest{Username: "alice"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeValidation {
		t.Errorf("error code = %q, want %q", code, ErrCodeValidation)
	}
}

func TestHandleRefresh_RotatesSession(t *testing.T) {
	srv, db := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, db, "alice", "testpass123", auth.RoleUser)

	session := loginAs(t, router, "alice", "testpass123")

	w := doJSON(t, router, http.MethodPost, "/auth/refresh", "",
		refreshRequest{RefreshToken: session.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body: %s", w.Code, w.Body.String())
	}

	var rotated sessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rotated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Error("refresh should rotate the refresh token")
	}

	// Replaying the consumed token fails
	w = doJSON(t, router, http.MethodPost, "/auth/refresh", "",
		refreshRequest{RefreshToken: session.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeInvalidRefreshToken {
		t.Errorf("error code = %q, want %q", code, ErrCodeInvalidRefreshToken)
	}
}

func TestHandleRefresh_GarbageToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/auth/refresh", "",
		refreshRequest{RefreshToken: "never-issued"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeInvalidRefreshToken {
		t.Errorf("error code = %q, want %q", code, ErrCodeInvalidRefreshToken)
	}
}

func TestHandleLogout_AlwaysSucceeds(t *testing.T) {
	srv, db := testServer(t)
	router := srv.buildRouter()
	createTestUser(t, db, "alice", "testpass123", auth.RoleUser)

	session := loginAs(t, router, "alice", "testpass123")

	// Logout with a live token
	w := doJSON(t, router, http.MethodPost, "/auth/logout", "",
		refreshRequest{RefreshToken: session.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", w.Code)
	}

	// The revoked token can no longer refresh
	w = doJSON(t, router, http.MethodPost, "/auth/refresh", "",
		refreshRequest{RefreshToken: session.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", w.Code)
	}

	// Repeat logout and logout of unknown tokens still return 200
	for _, token := range []string{session.RefreshToken, "never-issued", ""} {
		w = doJSON(t, router, http.MethodPost, "/auth/logout", "",
			refreshRequest{RefreshToken: token})
		if w.Code != http.StatusOK {
			t.Errorf("logout(%q) status = %d, want 200", token, w.Code)
		}
	}
}

func TestHandleMe(t *testing.T) {
	srv, db := testServer(t)
	router := srv.buildRouter()
	user := createTestUser(t, db, "viewer", "testpass123", auth.RoleViewer)

	session := loginAs(t, router, "viewer", "testpass123")

	w := doJSON(t, router, http.MethodGet, "/auth/me", session.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var resp meResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.User == nil || resp.User.ID != user.ID {
		t.Errorf("user = %+v, want ID %s", resp.User, user.ID)
	}

	// Viewer holds exactly the read permissions
	if len(resp.Permissions) != 5 {
		t.Errorf("permissions = %d, want 5", len(resp.Permissions))
	}
	for _, p := range resp.Permissions {
		if !strings.HasSuffix(p.Name, ".read") {
			t.Errorf("viewer permission %s should be read-only", p.Name)
		}
	}
}

func TestHandleMe_Unauthorized(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, "/auth/me", tt.token, nil)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
			if code := errorCode(t, w); code != ErrCodeUnauthorized {
				t.Errorf("error code = %q, want %q", code, ErrCodeUnauthorized)
			}
		})
	}
}
