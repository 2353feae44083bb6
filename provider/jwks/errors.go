package jwks

import (
	stderrors "errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

var ErrNoKeys = errors.New("jwks: at least one JWK Set URL or signing key is required", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

func normalizeValidationError(err error) error {
	if err == nil {
		return nil
	}

	clone := ErrTokenMalformed.Clone()
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		clone = ErrTokenExpired.Clone()
	}

	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"provider": "jwks",
		"cause":    err.Error(),
	})
}
