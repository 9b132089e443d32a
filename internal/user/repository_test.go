package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayloop/booking-api/internal/database"
)

var userColumns = []string{
	"id", "full_name", "email", "password_hash", "phone",
	"address", "role", "email_verified", "created_at", "updated_at",
}

func setupRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(database.NewBunDB(db)), mock
}

func userRow(id uuid.UUID, email string, role Role) *sqlmock.Rows {
	now := time.Now()
	address := "1 Main St"
	return sqlmock.NewRows(userColumns).
		AddRow(id, "Ada Guest", email, "$2a$10$digest", "+420123456789",
			&address, string(role), false, now, now)
}

func TestRepositoryCreate(t *testing.T) {
	repo, mock := setupRepository(t)
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(userRow(id, "a@x.com", RoleGuest))

	address := "1 Main St"
	created, err := repo.Create(context.Background(), NewUser{
		FullName:     "Ada Guest",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$digest",
		Phone:        "+420123456789",
		Address:      &address,
		Role:         RoleGuest,
	})
	require.NoError(t, err)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, RoleGuest, created.Role)
	assert.False(t, created.EmailVerified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateDuplicateEmail(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

	_, err := repo.Create(context.Background(), NewUser{
		FullName:     "Ada Guest",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$digest",
		Phone:        "+420123456789",
		Role:         RoleGuest,
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByEmail(t *testing.T) {
	repo, mock := setupRepository(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(userRow(id, "a@x.com", RoleGuest))

	u, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByEmailNotFound(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByEmailAndRole(t *testing.T) {
	repo, mock := setupRepository(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(userRow(id, "a@x.com", RoleOwner))

	u, err := repo.GetByEmailAndRole(context.Background(), "a@x.com", RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, u.Role)

	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByEmailAndRole(context.Background(), "a@x.com", RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkEmailVerified(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkEmailVerified(context.Background(), uuid.New())
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkEmailVerified(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdate(t *testing.T) {
	repo, mock := setupRepository(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(userRow(id, "new@x.com", RoleGuest))

	email := "new@x.com"
	updated, err := repo.Update(context.Background(), id, UpdateProfile{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", updated.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpdateNotFound(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	phone := "+420999888777"
	_, err := repo.Update(context.Background(), uuid.New(), UpdateProfile{Phone: &phone})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListActive(t *testing.T) {
	repo, mock := setupRepository(t)

	rows := userRow(uuid.New(), "a@x.com", RoleGuest)
	mock.ExpectQuery(`SELECT DISTINCT (.+) INNER JOIN user_sessions`).
		WillReturnRows(rows)

	users, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a@x.com", users[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDelete(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec(`DELETE FROM "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), uuid.New()))

	mock.ExpectExec(`DELETE FROM "users"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
