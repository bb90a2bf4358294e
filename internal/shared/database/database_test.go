package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Run("matches the translated gorm sentinel", func(t *testing.T) {
		assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
		assert.True(t, IsUniqueViolation(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	})

	t.Run("matches the raw pgx driver error", func(t *testing.T) {
		assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
		assert.True(t, IsUniqueViolation(fmt.Errorf("create subscription: %w", &pgconn.PgError{Code: "23505"})))
	})

	t.Run("rejects everything else", func(t *testing.T) {
		assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
		assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
		assert.False(t, IsUniqueViolation(assert.AnError))
		assert.False(t, IsUniqueViolation(nil))
	})
}
