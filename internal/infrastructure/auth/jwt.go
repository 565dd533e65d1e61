package auth

import (
	"fmt"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type JWTManager struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTManager(secretKey string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *JWTManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// GenerateAccessToken генерирует короткоживущий access token
func (m *JWTManager) GenerateAccessToken(user *entity.User) (string, error) {
	return m.sign(user, tokenTypeAccess, m.accessTTL)
}

// GenerateRefreshToken генерирует refresh token
func (m *JWTManager) GenerateRefreshToken(user *entity.User) (string, error) {
	return m.sign(user, tokenTypeRefresh, m.refreshTTL)
}

func (m *JWTManager) sign(user *entity.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
		// уникальный id токена
		"jti":  uuid.NewString(),
		"type": tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return tokenString, nil
}

// ValidateAccessToken проверяет access token
func (m *JWTManager) ValidateAccessToken(tokenString string) (*entity.JWTClaims, error) {
	return m.validate(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken проверяет refresh token
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*entity.JWTClaims, error) {
	return m.validate(tokenString, tokenTypeRefresh)
}

func (m *JWTManager) validate(tokenString, expectedType string) (*entity.JWTClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	// Проверяем тип токена
	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != expectedType {
		return nil, fmt.Errorf("invalid token type")
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid user_id in token")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id in token: %w", err)
	}

	email, _ := claims["email"].(string)

	rawRole, _ := claims["role"].(string)
	role, ok := entity.ParseRole(rawRole)
	if !ok {
		return nil, fmt.Errorf("invalid role in token")
	}

	return &entity.JWTClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
	}, nil
}
