package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestDirectKey(t *testing.T) {
	assert.Equal(t, "1:2", directKey(1, 2))
	assert.Equal(t, "1:2", directKey(2, 1), "expected the same key regardless of argument order")
	assert.Equal(t, "7:7", directKey(7, 7))
}

func TestNotFoundOr(t *testing.T) {
	assert.ErrorIs(t, notFoundOr(sql.ErrNoRows), ErrNotFound)

	original := fmt.Errorf("connection reset")
	assert.Equal(t, original, notFoundOr(original))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("not a pq error")))
}
