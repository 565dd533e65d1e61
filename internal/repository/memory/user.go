package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository"
	"github.com/google/uuid"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[uuid.UUID]entity.User),
	}
}

func (r *UserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return entity.ErrUserExists
		}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetById(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) Update(_ context.Context, id uuid.UUID, req *entity.UpdateProfileRequest) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Age != nil {
		u.Age = req.Age
	}
	if req.Location != nil {
		u.Location = req.Location
	}
	if req.Phone != nil {
		u.Phone = req.Phone
	}
	if req.Latitude != nil {
		u.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		u.Longitude = req.Longitude
	}
	u.UpdatedAt = time.Now().UTC()

	r.users[id] = u
	return &u, nil
}

func (r *UserRepository) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return entity.ErrUserNotFound
	}
	u.LastLogin = &at
	r.users[id] = u
	return nil
}

type RefreshTokenRepository struct {
	mu     sync.Mutex
	seq    int64
	tokens map[string]*repository.RefreshToken
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{
		tokens: make(map[string]*repository.RefreshToken),
	}
}

func (r *RefreshTokenRepository) Save(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.tokens[tokenHash] = &repository.RefreshToken{
		ID:        r.seq,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (r *RefreshTokenRepository) GetByHash(_ context.Context, tokenHash string) (*repository.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[tokenHash]
	if !ok || t.Revoked || !t.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	token := *t
	return &token, nil
}

func (r *RefreshTokenRepository) Revoke(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[tokenHash]
	if !ok || t.Revoked || !t.ExpiresAt.After(time.Now()) {
		return entity.ErrUnauthorized
	}
	t.Revoked = true
	return nil
}

func (r *RefreshTokenRepository) RevokeAll(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}
