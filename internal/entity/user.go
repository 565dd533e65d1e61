package entity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role - роль пользователя, хранится строкой как в исходной схеме
type Role string

const (
	RoleSenior Role = "elderly"
	RoleHelper Role = "helper"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSenior:
		return RoleSenior, true
	case RoleHelper:
		return RoleHelper, true
	}
	return "", false
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Никогда не отправляем пароль
	Role         Role       `json:"role"`
	Age          *int       `json:"age,omitempty"`
	Location     *string    `json:"location,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) Coordinates() (Coordinates, bool) {
	if u.Latitude == nil || u.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *u.Latitude, Longitude: *u.Longitude}, true
}

// Actor - кто выполняет операцию; берется из проверенного токена
type Actor struct {
	UserID uuid.UUID
	Role   Role
	Name   string
}

type UpdateProfileRequest struct {
	Name      *string  `json:"name"`
	Age       *int     `json:"age"`
	Location  *string  `json:"location"`
	Phone     *string  `json:"phone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r *UpdateProfileRequest) Validate() error {
	var verr ValidationError
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		verr.Add("name", "must not be empty")
	}
	if r.Age != nil && (*r.Age < 0 || *r.Age > 150) {
		verr.Add("age", "out of range")
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		verr.Add("coordinates", "latitude and longitude must be set together")
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		verr.Add("latitude", "out of range")
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		verr.Add("longitude", "out of range")
	}
	return verr.Err()
}

// Регистрация
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

func (r *RegisterRequest) Validate() error {
	var verr ValidationError
	if strings.TrimSpace(r.Name) == "" {
		verr.Add("name", "is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		verr.Add("email", "must be a valid address")
	}
	if len(r.Password) < 8 {
		verr.Add("password", "must be at least 8 characters")
	}
	if _, ok := ParseRole(string(r.Role)); !ok {
		verr.Add("role", "must be elderly or helper")
	}
	return verr.Err()
}

// Логин
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh Token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// JWT Claims
type JWTClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}
