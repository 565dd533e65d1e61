package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/infrastructure/auth"
	"github.com/St1cky1/entraide-service/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService() (*AuthService, *memory.UserRepository) {
	users := memory.NewUserRepository()
	svc := NewAuthService(
		users,
		memory.NewRefreshTokenRepository(),
		auth.NewPasswordManager(bcrypt.MinCost),
		auth.NewJWTManager("test-secret", time.Minute, time.Hour),
	)
	return svc, users
}

func registerRequest(email string, role entity.Role) *entity.RegisterRequest {
	return &entity.RegisterRequest{
		Name:     "Jeanne Dupont",
		Email:    email,
		Password: "motdepasse",
		Role:     role,
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	resp, err := svc.Register(ctx, registerRequest("jeanne@example.org", entity.RoleSenior))
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, "motdepasse", resp.User.PasswordHash)

	actor, err := svc.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, actor.UserID)
	assert.Equal(t, entity.RoleSenior, actor.Role)

	_, err = svc.Authenticate(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)
}

func TestRegisterRejectsDuplicatesAndInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	_, err := svc.Register(ctx, registerRequest("lucas@example.org", entity.RoleHelper))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerRequest("lucas@example.org", entity.RoleHelper))
	assert.ErrorIs(t, err, entity.ErrUserExists)

	_, err = svc.Register(ctx, &entity.RegisterRequest{Name: " ", Email: "nope", Password: "123", Role: "admin"})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, users := newAuthService()

	_, err := svc.Register(ctx, registerRequest("emma@example.org", entity.RoleHelper))
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &entity.LoginRequest{Email: "emma@example.org", Password: "motdepasse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	stored, err := users.GetById(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	_, err = svc.Login(ctx, &entity.LoginRequest{Email: "emma@example.org", Password: "wrong-password"})
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	_, err = svc.Login(ctx, &entity.LoginRequest{Email: "ghost@example.org", Password: "motdepasse"})
	assert.ErrorIs(t, err, entity.ErrUnauthorized)
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	resp, err := svc.Register(ctx, registerRequest("paul@example.org", entity.RoleSenior))
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, rotated.RefreshToken)

	// старый токен отозван
	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, resp.User.ID))
	_, err = svc.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, entity.ErrUnauthorized)
}

func TestConcurrentRefreshHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	resp, err := svc.Register(ctx, registerRequest("lea@example.org", entity.RoleHelper))
	require.NoError(t, err)

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RefreshToken(ctx, resp.RefreshToken)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, entity.ErrUnauthorized)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
