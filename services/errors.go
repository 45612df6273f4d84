package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrContenderUnavailable means a contender was consumed between selection and commit.
	ErrContenderUnavailable = errors.New("contender no longer available")
	ErrContenderNotFound    = errors.New("contender not found")
	ErrBattleNotFound       = errors.New("battle not found")
	// ErrVersionConflict means a concurrent writer bumped the record version first.
	ErrVersionConflict = errors.New("version conflict")
	ErrAlreadyVoted    = errors.New("voter already participated")
	ErrInvalidSide     = errors.New("side must be itemA or itemB")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("forbidden")
)

// isDuplicateKey reports unique-constraint violations across the postgres and sqlite drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
