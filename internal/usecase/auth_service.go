package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/infrastructure/auth"
	"github.com/St1cky1/entraide-service/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type AuthService struct {
	userRepo         repository.IUserRepository
	refreshTokenRepo repository.IRefreshTokenRepository
	passwordManager  *auth.PasswordManager
	jwtManager       *auth.JWTManager
}

func NewAuthService(
	userRepo repository.IUserRepository,
	refreshTokenRepo repository.IRefreshTokenRepository,
	passwordManager *auth.PasswordManager,
	jwtManager *auth.JWTManager,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		passwordManager:  passwordManager,
		jwtManager:       jwtManager,
	}
}

// Register регистрирует нового пользователя
func (s *AuthService) Register(ctx context.Context, req *entity.RegisterRequest) (*entity.LoginResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, entity.ErrUserExists
	}

	// Хешируем пароль
	passwordHash, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entity.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user registered")
	return s.issueTokens(ctx, user)
}

// Login логинит пользователя
func (s *AuthService) Login(ctx context.Context, req *entity.LoginRequest) (*entity.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !s.passwordManager.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, entity.ErrUnauthorized
	}

	// Обновляем last_login
	now := time.Now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update last_login: %w", err)
	}
	user.LastLogin = &now

	return s.issueTokens(ctx, user)
}

// RefreshToken выдает новую пару токенов, старый refresh отзывается
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenStr string) (*entity.RefreshTokenResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshTokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}

	// Проверяем, есть ли этот токен в БД
	refreshTokenHash := hashToken(refreshTokenStr)
	storedToken, err := s.refreshTokenRepo.GetByHash(ctx, refreshTokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if storedToken == nil {
		return nil, entity.ErrUnauthorized
	}

	user, err := s.userRepo.GetById(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, entity.ErrUnauthorized
	}

	// параллельный refresh тем же токеном проигрывает здесь
	if err := s.refreshTokenRepo.Revoke(ctx, refreshTokenHash); err != nil {
		if errors.Is(err, entity.ErrUnauthorized) {
			return nil, entity.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &entity.RefreshTokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Logout отзывает все refresh токены пользователя
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokenRepo.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// Authenticate проверяет access token и возвращает действующее лицо
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (entity.Actor, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return entity.Actor{}, fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}
	return entity.Actor{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *entity.User) (*entity.LoginResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	// Сохраняем хеш refresh token в БД
	expiresAt := time.Now().Add(s.jwtManager.RefreshTTL())
	if err := s.refreshTokenRepo.Save(ctx, user.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &entity.LoginResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// hashToken генерирует хеш токена для хранения в БД
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
