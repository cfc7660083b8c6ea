package repos_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xxwlkq/ecommerce-system/internal/repos"
)

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockdb.Close() })
	return sqlx.NewDb(mockdb, "sqlite"), mock
}

func TestProductRepo_GetPropagatesDriverError(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery("FROM products WHERE id").
		WithArgs(int64(7)).
		WillReturnError(errors.New("disk I/O error"))

	_, err := repos.NewProductRepo(db).Get(context.Background(), 7)
	require.Error(t, err)
	require.NotErrorIs(t, err, repos.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_DecrementNoRowsIsRefusal(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("UPDATE products").
		WithArgs(3, int64(1), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repos.NewProductRepo(db).Decrement(context.Background(), 1, 3)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_SetBalanceMissingUser(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec("UPDATE users SET balance").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repos.NewUserRepo(db).SetBalance(context.Background(), "u-x", decimal.NewFromInt(1))
	require.ErrorIs(t, err, repos.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
