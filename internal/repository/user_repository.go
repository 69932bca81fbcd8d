package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"account-service/internal/model"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user with this email or username already exists")
)

const uniqueViolation = "23505"

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (uuid.UUID, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// FindSafeByID never loads password_hash or refresh_token.
	FindSafeByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	UnsetRefreshToken(ctx context.Context, id uuid.UUID) error
}

type postgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, user *model.User) (uuid.UUID, error) {
	query := `INSERT INTO users (email, username, full_name, password_hash, avatar, cover_image) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var newID uuid.UUID
	err := r.db.QueryRowxContext(ctx, query,
		user.Email, user.Username, user.FullName, user.PasswordHash, user.Avatar, user.CoverImage,
	).Scan(&newID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uuid.Nil, ErrDuplicateUser
		}
		return uuid.Nil, err
	}

	return newID, nil
}

// FindByEmailOrUsername matches either column; an empty argument never matches.
func (r *postgresUserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	var user model.User
	query := `SELECT id, email, username, full_name, password_hash, avatar, cover_image, refresh_token, created_at, updated_at FROM users WHERE (email = $1 AND $1 <> '') OR (username = $2 AND $2 <> '') LIMIT 1`
	err := r.db.GetContext(ctx, &user, query, email, username)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *postgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	query := `SELECT id, email, username, full_name, password_hash, avatar, cover_image, refresh_token, created_at, updated_at FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *postgresUserRepository) FindSafeByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	query := `SELECT id, email, username, full_name, avatar, cover_image, created_at, updated_at FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *postgresUserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE users SET refresh_token = $1, updated_at = now() WHERE id = $2`
	return r.execAffectingOne(ctx, query, token, id)
}

func (r *postgresUserRepository) UnsetRefreshToken(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`
	return r.execAffectingOne(ctx, query, id)
}

func (r *postgresUserRepository) execAffectingOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}
