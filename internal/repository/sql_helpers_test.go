package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert failed: %w", dup)))

	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestBuildPlaceholders(t *testing.T) {
	assert.Equal(t, "$1,$2,$3", buildPlaceholders(1, 3))
	assert.Equal(t, "$7,$8,$9,$10,$11,$12", buildPlaceholders(7, 6))
	assert.Equal(t, "", buildPlaceholders(1, 0))
}
