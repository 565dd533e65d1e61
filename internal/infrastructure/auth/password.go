package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt учитывает только первые 72 байта
const maxPasswordBytes = 72

type PasswordManager struct {
	cost int
}

// NewPasswordManager - при cost вне [MinCost, MaxCost] берется DefaultCost
func NewPasswordManager(cost int) *PasswordManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordManager{cost: cost}
}

func (m *PasswordManager) HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("hash password: %w", bcrypt.ErrPasswordTooLong)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword - false и для битого хеша, и для неверного пароля
func (m *PasswordManager) VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
