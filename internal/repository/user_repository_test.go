package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"account-service/internal/model"
	repo "account-service/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "username", "full_name", "password_hash", "avatar", "cover_image", "refresh_token", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (repo.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repo.NewPostgresUserRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPostgresUserRepository_Create(t *testing.T) {
	r, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (email, username, full_name, password_hash, avatar, cover_image) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`)).
		WithArgs("Jane@Example.com", "jane", "Jane Doe", "hash", "https://cdn/a.png", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))

	nid, err := r.Create(context.Background(), &model.User{
		Email:        "Jane@Example.com",
		Username:     "jane",
		FullName:     "Jane Doe",
		PasswordHash: "hash",
		Avatar:       "https://cdn/a.png",
	})
	require.NoError(t, err)
	require.Equal(t, id, nid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_Create_UniqueViolation(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := r.Create(context.Background(), &model.User{Email: "a@b.com", Username: "a"})
	require.ErrorIs(t, err, repo.ErrDuplicateUser)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_Create_OtherError(t *testing.T) {
	r, mock := newMockRepo(t)

	boom := errors.New("connection refused")
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).WillReturnError(boom)

	_, err := r.Create(context.Background(), &model.User{Email: "a@b.com", Username: "a"})
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, repo.ErrDuplicateUser)
}

func TestPostgresUserRepository_FindByEmailOrUsername(t *testing.T) {
	r, mock := newMockRepo(t)

	id := uuid.New()
	now := time.Now()
	token := "stored-token"
	rows := sqlmock.NewRows(userColumns).
		AddRow(id.String(), "a@b.com", "jane", "Jane", "hash", "https://cdn/a.png", "", token, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE (email = $1 AND $1 <> '') OR (username = $2 AND $2 <> '') LIMIT 1`)).
		WithArgs("a@b.com", "jane").WillReturnRows(rows)

	u, err := r.FindByEmailOrUsername(context.Background(), "a@b.com", "jane")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, "hash", u.PasswordHash)
	require.NotNil(t, u.RefreshToken)
	require.Equal(t, token, *u.RefreshToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindByEmailOrUsername_NotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE`)).
		WithArgs("", "ghost").WillReturnError(sql.ErrNoRows)

	_, err := r.FindByEmailOrUsername(context.Background(), "", "ghost")
	require.ErrorIs(t, err, repo.ErrUserNotFound)
}

func TestPostgresUserRepository_FindSafeByID_SelectsNoSecrets(t *testing.T) {
	r, mock := newMockRepo(t)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "username", "full_name", "avatar", "cover_image", "created_at", "updated_at"}).
		AddRow(id.String(), "a@b.com", "jane", "Jane", "https://cdn/a.png", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, username, full_name, avatar, cover_image, created_at, updated_at FROM users WHERE id = $1`)).
		WithArgs(id).WillReturnRows(rows)

	u, err := r.FindSafeByID(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, u.PasswordHash)
	require.Nil(t, u.RefreshToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindByID_NotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrNoRows)

	_, err := r.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, repo.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_SetRefreshToken(t *testing.T) {
	r, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET refresh_token = $1, updated_at = now() WHERE id = $2`)).
		WithArgs("new-token", id).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.SetRefreshToken(context.Background(), id, "new-token"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_UnsetRefreshToken(t *testing.T) {
	r, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`)).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.UnsetRefreshToken(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_UnsetRefreshToken_MissingUser(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET refresh_token = NULL`)).
		WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.UnsetRefreshToken(context.Background(), uuid.New())
	require.ErrorIs(t, err, repo.ErrUserNotFound)
}
