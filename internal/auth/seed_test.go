package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedAdmin_FirstBoot(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := SeedAdmin(ctx, repo, discardLogger())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if !created {
		t.Fatal("SeedAdmin() should create the admin on an empty database")
	}

	admin, err := repo.GetByUsername(ctx, DefaultAdminUsername)
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", admin.Role, RoleAdmin)
	}
	if admin.Email != DefaultAdminEmail {
		t.Errorf("Email = %q, want %q", admin.Email, DefaultAdminEmail)
	}
	if !admin.IsActive {
		t.Error("seeded admin should be active")
	}
	if !VerifyPassword(DefaultAdminPassword, admin.PasswordHash) {
		t.Error("default password should verify against stored hash")
	}
}

func TestSeedAdmin_SkipsWhenUsersExist(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedTestUser(t, db, "existing", RoleViewer)

	created, err := SeedAdmin(ctx, repo, discardLogger())
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if created {
		t.Error("SeedAdmin() should skip when any user exists")
	}

	if _, err := repo.GetByUsername(ctx, DefaultAdminUsername); err == nil {
		t.Error("no admin account should have been created")
	}
}

func TestSeedPermissions_Idempotent(t *testing.T) {
	db := testDB(t)
	repo := NewPermissionRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := SeedPermissions(ctx, repo, discardLogger()); err != nil {
			t.Fatalf("SeedPermissions() run %d error = %v", i+1, err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 20 {
		t.Errorf("permissions = %d, want 20 after repeated seeding", len(all))
	}
}

func TestSeedPermissions_RebuildsStaleGrants(t *testing.T) {
	db := testDB(t)
	repo := NewPermissionRepository(db)
	ctx := context.Background()

	if err := SeedPermissions(ctx, repo, discardLogger()); err != nil {
		t.Fatalf("SeedPermissions() error = %v", err)
	}

	// Simulate a grant left over from an older policy
	if _, err := db.Exec(
		`INSERT INTO role_permissions (role, permission_id)
		 SELECT 'VIEWER', id FROM permissions WHERE name = ?`, PermItemDelete); err != nil {
		t.Fatalf("inserting stale grant: %v", err)
	}

	if err := SeedPermissions(ctx, repo, discardLogger()); err != nil {
		t.Fatalf("SeedPermissions() error = %v", err)
	}

	ok, err := repo.RoleHasPermission(ctx, RoleViewer, PermItemDelete)
	if err != nil {
		t.Fatalf("RoleHasPermission() error = %v", err)
	}
	if ok {
		t.Error("stale grant should be removed by the rebuild")
	}
}
