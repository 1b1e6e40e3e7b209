package casdoor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// tokenParser is the part of the casdoor client used here.
type tokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// UserCasdoor verifies casdoor-issued tokens and maps their claims onto
// local users. Verified identities are cached by token for a short time.
type UserCasdoor struct {
	parser tokenParser
	cache  *cache.CacheHelper
	ttl    time.Duration
}

func NewUserCasdoor(config CasdoorConfig, cm *cache.CacheManager) repositories.IdentityProvider {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)
	return newUserCasdoor(client, cm)
}

func newUserCasdoor(parser tokenParser, cm *cache.CacheManager) *UserCasdoor {
	if cm == nil {
		cm = cache.NewCacheManager(nil)
	}
	return &UserCasdoor{
		parser: parser,
		cache:  cm.User,
		ttl:    2 * time.Minute,
	}
}

// VerifyToken parses the token and returns the identity it carries.
func (u *UserCasdoor) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	key := "casdoor:" + tokenFingerprint(token)

	var cached models.User
	if err := u.cache.Get(ctx, key, &cached); err == nil && cached.ID != "" {
		return &cached, nil
	}

	claims, err := u.parser.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid casdoor token: %w", err)
	}

	if strings.TrimSpace(claims.User.Id) == "" {
		return nil, fmt.Errorf("casdoor token has no subject")
	}
	user := convertClaimsToUser(claims)

	if err := u.cache.Set(ctx, key, user, u.ttl); err != nil {
		cache.SafeDelete(ctx, u.cache, key)
	}
	return user, nil
}

func convertClaimsToUser(claims *casdoorsdk.Claims) *models.User {
	name := claims.User.DisplayName
	if name == "" {
		name = claims.User.Name
	}

	var createdAt time.Time
	if claims.User.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, claims.User.CreatedTime)
	}

	return &models.User{
		ID:         "casdoor:" + claims.User.Id,
		Name:       name,
		Email:      strings.ToLower(strings.TrimSpace(claims.User.Email)),
		Role:       mapRoles(&claims.User),
		ProfilePic: claims.User.Avatar,
		CreatedAt:  createdAt,
	}
}

func mapRoles(user *casdoorsdk.User) models.UserRole {
	if user.IsAdmin {
		return models.RoleAdmin
	}
	names := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		if role != nil {
			names = append(names, strings.ToLower(role.Name))
		}
	}
	if slices.Contains(names, "admin") || slices.Contains(names, "administrator") {
		return models.RoleAdmin
	}
	return models.RoleStudent
}

// tokenFingerprint keeps raw tokens out of cache keys.
func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
