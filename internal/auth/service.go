package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// TokenPair is the credential pair returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service orchestrates authentication flows over the repositories and
// the token signer. HTTP handlers call the service; the service owns
// the business rules.
type Service struct {
	users  UserRepository
	tokens TokenRepository
	perms  PermissionRepository
	signer *TokenSigner
	logger *slog.Logger
}

// NewService creates an authentication service.
func NewService(users UserRepository, tokens TokenRepository, perms PermissionRepository, signer *TokenSigner, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		perms:  perms,
		signer: signer,
		logger: logger,
	}
}

// Login verifies credentials and establishes a session.
//
// Unknown username and wrong password both return ErrInvalidCredentials
// so responses cannot be used to probe for accounts; a deactivated
// account with correct credentials returns ErrUserInactive. Issuing the
// refresh token revokes any previous session for the user.
func (s *Service) Login(ctx context.Context, username, password, deviceInfo string) (*TokenPair, *User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a hash comparison so unknown usernames cost the
			// same as wrong passwords.
			VerifyPassword(password, dummyHash)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		s.logger.Warn("failed login attempt", "username", username)
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Warn("login attempt on inactive account", "username", username)
		return nil, nil, ErrUserInactive
	}

	pair, err := s.issueTokens(ctx, user, deviceInfo)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	return pair, user, nil
}

// Refresh rotates a session: the presented refresh token is validated,
// then a fresh pair is issued. Issue revokes the presented token along
// with everything else outstanding for the user, so a replayed token
// fails with ErrTokenInvalid.
func (s *Service) Refresh(ctx context.Context, rawToken, deviceInfo string) (*TokenPair, *User, error) {
	userID, err := s.tokens.ValidateAndConsume(ctx, rawToken)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("validating refresh token: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, fmt.Errorf("loading user for refresh: %w", err)
	}

	pair, err := s.issueTokens(ctx, user, deviceInfo)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("session refreshed", "user_id", user.ID)
	return pair, user, nil
}

// Logout revokes the presented refresh token. Always succeeds from the
// caller's perspective: unknown, expired, and already-revoked tokens
// are treated the same as a live one.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if err := s.tokens.Revoke(ctx, rawToken); err != nil {
		return fmt.Errorf("revoking token on logout: %w", err)
	}
	return nil
}

// VerifyAccessToken parses and validates a bearer token and returns the
// authenticated principal. Stateless: the user row is not consulted, so
// deactivation takes effect at next refresh rather than instantly.
func (s *Service) VerifyAccessToken(tokenString string) (*Principal, error) {
	return s.signer.ParseAccessToken(tokenString)
}

// CurrentUser loads the full account for an authenticated principal.
func (s *Service) CurrentUser(ctx context.Context, p *Principal) (*User, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequirePermission checks the stored policy for the principal's role.
// Returns ErrForbidden when the grant is absent; any lookup failure is
// also a denial.
func (s *Service) RequirePermission(ctx context.Context, p *Principal, permission string) error {
	ok, err := s.perms.RoleHasPermission(ctx, p.Role, permission)
	if err != nil {
		return fmt.Errorf("checking permission %s: %w", permission, err)
	}
	if !ok {
		s.logger.Warn("permission denied",
			"user_id", p.UserID, "role", p.Role, "permission", permission)
		return ErrForbidden
	}
	return nil
}

// PermissionsForRole returns the stored grants for a role, for the
// /auth/me response.
func (s *Service) PermissionsForRole(ctx context.Context, role Role) ([]PermissionDef, error) {
	return s.perms.ListForRole(ctx, role)
}

func (s *Service) issueTokens(ctx context.Context, user *User, deviceInfo string) (*TokenPair, error) {
	access, err := s.signer.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	refresh, err := s.tokens.Issue(ctx, user.ID, deviceInfo)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// dummyHash is a valid bcrypt digest of a throwaway string, used to
// equalise timing when the username does not exist.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
