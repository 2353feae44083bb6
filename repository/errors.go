package repository

import (
	"github.com/goliatone/go-errors"
)

var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(errors.CodeNotFound)

var ErrSessionNotFound = errors.New("session not found", errors.CategoryNotFound).
	WithTextCode("SESSION_NOT_FOUND").
	WithCode(errors.CodeNotFound)
