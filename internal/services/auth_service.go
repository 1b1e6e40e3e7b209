package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/mocktest-service/internal/auth"
	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/storage"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// DefaultMaxUploadSize caps profile pictures.
const DefaultMaxUploadSize = 2 << 20

type authService struct {
	repo          repositories.Repository
	logger        *slog.Logger
	validator     *validator.Validator
	tokens        *auth.TokenManager
	authenticator *auth.Authenticator
	blobs         storage.BlobStore
	cache         *cache.CacheManager
	maxUpload     int64
	now           func() time.Time
}

type AuthServiceConfig struct {
	Tokens        *auth.TokenManager
	Authenticator *auth.Authenticator
	Blobs         storage.BlobStore
	Cache         *cache.CacheManager
	MaxUploadSize int64
}

func NewAuthService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, cfg AuthServiceConfig) AuthService {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewCacheManager(nil)
	}
	if cfg.Authenticator == nil {
		cfg.Authenticator = auth.NewAuthenticator(cfg.Tokens, repo.User(), nil, logger)
	}
	return &authService{
		repo:          repo,
		logger:        logger,
		validator:     validator,
		tokens:        cfg.Tokens,
		authenticator: cfg.Authenticator,
		blobs:         cfg.Blobs,
		cache:         cfg.Cache,
		maxUpload:     cfg.MaxUploadSize,
		now:           time.Now,
	}
}

func (s *authService) Signup(ctx context.Context, req *validator.SignupRequest) (*models.AuthResponse, error) {
	if errs := s.validator.ValidateSignup(req); len(errs) > 0 {
		return nil, errs
	}
	s.logger.Info("Signing up user", "email", req.Email)

	exists, err := s.repo.User().ExistsByEmail(ctx, nil, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		ProfilePic:   models.DefaultAvatarURL(req.Name, rand.Intn(1<<16)),
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.authResponse("Signup successful", user)
}

func (s *authService) Login(ctx context.Context, req *validator.LoginRequest) (*models.AuthResponse, error) {
	if errs := s.validator.ValidateLogin(req); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.repo.User().GetByEmail(ctx, nil, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.logger.Warn("Login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return s.authResponse("Login successful", user)
}

func (s *authService) authResponse(message string, user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Message: message, Token: token, User: toProfile(user)}, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	user, err := s.authenticator.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := toProfile(user)
	return &profile, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, req *validator.UpdateProfileRequest, pic *FileUpload) (*models.UserProfile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req != nil && req.Name != nil {
		if errs := s.validator.Validate(req); len(errs) > 0 {
			return nil, errs
		}
		user.Name = trimmed(*req.Name)
	}

	var oldKey string
	if pic != nil {
		key, err := s.storeProfilePic(ctx, userID, pic)
		if err != nil {
			return nil, err
		}
		if user.HasUploadedPicture() {
			oldKey = user.ProfilePic
		}
		user.ProfilePic = key
	}

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if oldKey != "" {
		if err := s.blobs.Delete(ctx, oldKey); err != nil {
			s.logger.Warn("Failed to delete old profile picture", "error", err, "key", oldKey)
		}
	}
	cache.InvalidateLeaderboard(ctx, s.cache, userID)

	s.logger.Info("Profile updated", "user_id", userID, "picture", pic != nil)
	profile := toProfile(user)
	return &profile, nil
}

func (s *authService) storeProfilePic(ctx context.Context, userID string, pic *FileUpload) (string, error) {
	if s.blobs == nil {
		return "", fmt.Errorf("profile picture storage is not configured")
	}
	if !validator.IsAllowedImage(pic.Filename) {
		return "", ValidationErrors{{
			Field:   "profilePic",
			Message: "Only image files are allowed (jpg, jpeg, png, gif)",
			Value:   pic.Filename,
			Rule:    "image_ext",
		}}
	}
	if pic.Size > s.maxUpload {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, pic.Size, s.maxUpload)
	}

	key := storage.ProfilePicKey(userID, filepath.Ext(pic.Filename), s.now())
	// One byte over the limit is enough to detect an understated size.
	limited := io.LimitReader(pic.Content, s.maxUpload+1)
	counter := &countingReader{r: limited}
	stored, err := s.blobs.Put(ctx, key, counter)
	if err != nil {
		return "", fmt.Errorf("failed to store profile picture: %w", err)
	}
	if counter.n > s.maxUpload {
		_ = s.blobs.Delete(ctx, stored)
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, s.maxUpload)
	}
	return stored, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *validator.ChangePasswordRequest) error {
	if errs := s.validator.ValidatePasswordChange(req); len(errs) > 0 {
		return errs
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.User().UpdatePassword(ctx, nil, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.logger.Info("Password changed", "user_id", userID)
	return nil
}

func (s *authService) OpenUpload(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.blobs == nil {
		return nil, ErrBlobNotAvailable
	}
	rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, ErrBlobNotAvailable
		}
		return nil, err
	}
	return rc, nil
}

func (s *authService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
