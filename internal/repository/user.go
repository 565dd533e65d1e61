package repository

import (
	"context"
	"errors"
	"time"

	"github.com/St1cky1/entraide-service/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, role, age, location, phone, latitude, longitude,
	last_login, created_at, updated_at`

// код ошибки postgres unique_violation
const uniqueViolation = "23505"

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Age,
		&user.Location,
		&user.Phone,
		&user.Latitude,
		&user.Longitude,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// создаем пользователя
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
	INSERT INTO app_user (id, name, email, password_hash, role)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at, updated_at
	`

	err := conn(ctx, r.db).QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return entity.ErrUserExists
	}
	return err
}

// получаем данные по id
func (r *UserRepository) GetById(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM app_user WHERE id = $1`

	user, err := scanUser(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM app_user WHERE lower(email) = lower($1)`

	user, err := scanUser(conn(ctx, r.db).QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Update - обновляем профиль, nil поля не трогаем
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, req *entity.UpdateProfileRequest) (*entity.User, error) {
	query := `
	UPDATE app_user
	SET name = COALESCE($1, name),
	    age = COALESCE($2, age),
	    location = COALESCE($3, location),
	    phone = COALESCE($4, phone),
	    latitude = COALESCE($5, latitude),
	    longitude = COALESCE($6, longitude),
	    updated_at = CURRENT_TIMESTAMP
	WHERE id = $7
	RETURNING ` + userColumns

	user, err := scanUser(conn(ctx, r.db).QueryRow(ctx, query,
		req.Name,
		req.Age,
		req.Location,
		req.Phone,
		req.Latitude,
		req.Longitude,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE app_user SET last_login = $1 WHERE id = $2`

	result, err := conn(ctx, r.db).Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}
