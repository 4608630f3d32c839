package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type uniqueProbe struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex;size:16"`
}

func TestIsUniqueViolationClassifiesDriverErrors(t *testing.T) {
	require.False(t, IsUniqueViolation(nil))
	require.False(t, IsUniqueViolation(errors.New("connection refused")))
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}))
	require.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: shared_assessments.code")))
}

func TestIsUniqueViolationOnSQLiteInsert(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "unique.db"), nil, &uniqueProbe{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&uniqueProbe{Code: "ABCD1234"}).Error)
	err = db.Create(&uniqueProbe{Code: "ABCD1234"}).Error
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))
}
