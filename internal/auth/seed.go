package auth

import (
	"context"
	"fmt"
	"log/slog"
)

// Default credentials for the bootstrap administrator. The password is
// deliberately well-known; the account exists so a fresh install is
// usable, and operators are expected to change it immediately.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
	DefaultAdminEmail    = "admin@inventory.local"
)

// SeedAdmin creates the bootstrap administrator on first boot if no
// users exist. Returns true when the account was created.
func SeedAdmin(ctx context.Context, userRepo UserRepository, logger *slog.Logger) (bool, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return false, nil
	}

	hash, err := HashPassword(DefaultAdminPassword)
	if err != nil {
		return false, fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		Username:     DefaultAdminUsername,
		Email:        DefaultAdminEmail,
		PasswordHash: hash,
		Role:         RoleAdmin,
		IsActive:     true,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"username", DefaultAdminUsername,
		"action_required", "change the default password immediately",
	)

	return true, nil
}

// SeedPermissions installs the permission catalog and rebuilds role
// assignments. Idempotent; run on every startup.
func SeedPermissions(ctx context.Context, permRepo PermissionRepository, logger *slog.Logger) error {
	if err := permRepo.SeedCatalog(ctx); err != nil {
		return fmt.Errorf("seeding permission catalog: %w", err)
	}

	if err := permRepo.RebuildPolicy(ctx); err != nil {
		return fmt.Errorf("rebuilding role policy: %w", err)
	}

	logger.Info("permission catalog seeded")
	return nil
}
