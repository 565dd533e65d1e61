package usecase

import (
	"context"
	"testing"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/St1cky1/entraide-service/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfileAndCoordinates(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	svc := NewUserService(users)

	user := &entity.User{ID: uuid.New(), Name: "Lucas", Email: "lucas@example.org", Role: entity.RoleHelper}
	require.NoError(t, users.Create(ctx, user))

	coords, err := svc.Coordinates(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, coords)

	lat, lon := 50.4674, 4.8720
	location := "Namur"
	updated, err := svc.UpdateProfile(ctx, user.ID, &entity.UpdateProfileRequest{
		Location:  &location,
		Latitude:  &lat,
		Longitude: &lon,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lucas", updated.Name)
	require.NotNil(t, updated.Location)
	assert.Equal(t, "Namur", *updated.Location)

	coords, err = svc.Coordinates(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, coords)
	assert.Equal(t, entity.Coordinates{Latitude: lat, Longitude: lon}, *coords)
}

func TestUpdateProfileValidation(t *testing.T) {
	svc := NewUserService(memory.NewUserRepository())
	lat := 95.0

	_, err := svc.UpdateProfile(context.Background(), uuid.New(), &entity.UpdateProfileRequest{Latitude: &lat})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "coordinates")
	assert.Contains(t, verr.Fields, "latitude")

	name := "Paul"
	_, err = svc.UpdateProfile(context.Background(), uuid.New(), &entity.UpdateProfileRequest{Name: &name})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
