package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves a bearer token to a user. Local session tokens are
// tried first, then the external identity provider when one is configured.
type Authenticator struct {
	tokens   *TokenManager
	users    repositories.UserRepository
	external repositories.IdentityProvider
	logger   *slog.Logger
}

func NewAuthenticator(tokens *TokenManager, users repositories.UserRepository, external repositories.IdentityProvider, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, users: users, external: external, logger: logger}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	userID, localErr := a.tokens.Parse(token)
	if localErr == nil {
		user, err := a.users.GetByID(ctx, nil, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: user %s no longer exists", ErrUnauthenticated, userID)
			}
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		return user, nil
	}

	if a.external == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, localErr)
	}

	external, err := a.external.VerifyToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return a.ensureLocal(ctx, external)
}

// ensureLocal mirrors an externally verified user into the user table so
// progress rows can reference it.
func (a *Authenticator) ensureLocal(ctx context.Context, external *models.User) (*models.User, error) {
	user, err := a.users.GetByID(ctx, nil, external.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if external.ProfilePic == "" {
		external.ProfilePic = models.DefaultAvatarURL(external.Name, len(external.Name))
	}
	if err := a.users.Create(ctx, nil, external); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email %s is registered to another account", ErrUnauthenticated, external.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	a.logger.Info("Registered external user", "user_id", external.ID, "email", external.Email)
	return external, nil
}
