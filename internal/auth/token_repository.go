package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenRepository defines the interface for refresh token persistence.
//
// Issue and ValidateAndConsume together implement the token lifecycle:
// a token is Active until it is revoked (logout, supersession by a new
// Issue, or administrative revocation) or expires. Both terminal states
// are final.
type TokenRepository interface {
	Issue(ctx context.Context, userID, deviceInfo string) (string, error)
	ValidateAndConsume(ctx context.Context, rawToken string) (string, error)
	Revoke(ctx context.Context, rawToken string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	ListActiveByUser(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteTokenRepository implements TokenRepository using SQLite.
type SQLiteTokenRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewTokenRepository creates a new SQLite-backed token repository.
// ttl is the lifetime of newly issued refresh tokens.
func NewTokenRepository(db *sql.DB, ttl time.Duration) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db, ttl: ttl, now: time.Now}
}

// SetClock overrides the repository's clock for expiry tests.
func (r *SQLiteTokenRepository) SetClock(now func() time.Time) {
	r.now = now
}

// HashToken computes the SHA-256 hash of a raw token string for storage.
// Raw tokens are never stored — only their hashes.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// Issue generates a new refresh token for the user and returns the raw value.
//
// Single-session policy: in one transaction it (a) marks every existing
// non-revoked token for the user as revoked and (b) inserts the new row.
// A concurrent login or refresh for the same user serialises on the
// database writer, so exactly one token ends up active. Already-issued
// access tokens are unaffected; they run out their own expiry.
func (r *SQLiteTokenRepository) Issue(ctx context.Context, userID, deviceInfo string) (string, error) {
	raw, err := GenerateRefreshToken()
	if err != nil {
		return "", err
	}

	now := r.now().UTC()
	nowStr := now.Format(time.RFC3339)
	expiresAt := now.Add(r.ttl).Format(time.RFC3339)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning issue transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	// Supersede all outstanding sessions for this user
	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0",
		userID); err != nil {
		return "", fmt.Errorf("revoking previous tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, device_info, expires_at, revoked, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		"rt-"+uuid.NewString()[:16], userID, HashToken(raw),
		nullString(deviceInfo), expiresAt, nowStr,
	); err != nil {
		return "", fmt.Errorf("creating refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing issue: %w", err)
	}

	return raw, nil
}

// ValidateAndConsume checks a presented refresh token and returns the
// owning user ID.
//
// The token must exist, be unrevoked, be unexpired, and belong to an
// active user. Every failure collapses to ErrTokenInvalid so callers
// cannot leak which condition failed. On success the last-used timestamp
// is updated; rotation itself is the caller's job via a follow-up Issue.
func (r *SQLiteTokenRepository) ValidateAndConsume(ctx context.Context, rawToken string) (string, error) {
	now := r.now().UTC().Format(time.RFC3339)

	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT rt.user_id
		 FROM refresh_tokens rt
		 JOIN users u ON u.id = rt.user_id
		 WHERE rt.token_hash = ? AND rt.revoked = 0 AND rt.expires_at > ? AND u.is_active = 1`,
		HashToken(rawToken), now,
	).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrTokenInvalid
		}
		return "", fmt.Errorf("validating refresh token: %w", err)
	}

	// Informational only; a failure here must not reject the token.
	if _, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET last_used_at = ? WHERE token_hash = ?",
		now, HashToken(rawToken)); err != nil {
		return "", fmt.Errorf("recording token use: %w", err)
	}

	return userID, nil
}

// Revoke idempotently marks a token revoked. Revoking an unknown or
// already-revoked token is a no-op, so logout always succeeds.
func (r *SQLiteTokenRepository) Revoke(ctx context.Context, rawToken string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE token_hash = ?",
		HashToken(rawToken))
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// RevokeAllForUser marks all refresh tokens for a user as revoked.
// Used for password changes and administrative force-logout.
func (r *SQLiteTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("revoking all tokens for user: %w", err)
	}
	return nil
}

// GetByTokenHash retrieves a refresh token row by its SHA-256 hash.
func (r *SQLiteTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var t RefreshToken
	var deviceInfo, lastUsedAt sql.NullString
	var revoked int
	var expiresAt, createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, device_info, expires_at, revoked, last_used_at, created_at
		 FROM refresh_tokens WHERE token_hash = ?`, tokenHash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &deviceInfo,
		&expiresAt, &revoked, &lastUsedAt, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("getting refresh token by hash: %w", err)
	}

	t.Revoked = revoked != 0
	if deviceInfo.Valid {
		t.DeviceInfo = deviceInfo.String
	}
	if lastUsedAt.Valid {
		used, _ := time.Parse(time.RFC3339, lastUsedAt.String) //nolint:errcheck // format is controlled
		t.LastUsedAt = &used
	}
	t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &t, nil
}

// ListActiveByUser returns all non-revoked, non-expired tokens for a user.
// With the single-session policy this is at most one row; the repository
// still returns a slice so callers can assert the invariant.
func (r *SQLiteTokenRepository) ListActiveByUser(ctx context.Context, userID string) ([]RefreshToken, error) {
	now := r.now().UTC().Format(time.RFC3339)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, token_hash, device_info, expires_at, revoked, last_used_at, created_at
		 FROM refresh_tokens
		 WHERE user_id = ? AND revoked = 0 AND expires_at > ?
		 ORDER BY created_at DESC`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("listing active tokens: %w", err)
	}
	defer rows.Close()

	var tokens []RefreshToken
	for rows.Next() {
		var t RefreshToken
		var deviceInfo, lastUsedAt sql.NullString
		var revoked int
		var expiresAt, createdAt string

		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &deviceInfo,
			&expiresAt, &revoked, &lastUsedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning token: %w", err)
		}

		t.Revoked = revoked != 0
		if deviceInfo.Valid {
			t.DeviceInfo = deviceInfo.String
		}
		if lastUsedAt.Valid {
			used, _ := time.Parse(time.RFC3339, lastUsedAt.String) //nolint:errcheck // format is controlled
			t.LastUsedAt = &used
		}
		t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tokens: %w", err)
	}

	if tokens == nil {
		tokens = []RefreshToken{}
	}
	return tokens, nil
}

// DeleteExpired removes tokens whose expiry has passed, reclaiming
// storage. Purely housekeeping: expired tokens are already rejected by
// ValidateAndConsume, so correctness never depends on the sweep.
func (r *SQLiteTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := r.now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
