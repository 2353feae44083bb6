package guardware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-guard"
)

var (
	defaultTokenLookup = "header:" + fiber.HeaderAuthorization

	ErrTokenMissingOrMalformed = errors.New("missing or malformed token", errors.CategoryAuth).
					WithTextCode("TOKEN_MISSING").
					WithCode(errors.CodeUnauthorized)

	errNilProvider = errors.New("provider factory returned nil", errors.CategoryInternal)
)

type TokenExtractor func(c *fiber.Ctx) (string, error)

// GetExtractors parses a lookup such as
// "header:Authorization,cookie:session,query:auth_token,param:token".
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	if tokenLookup == "" {
		tokenLookup = defaultTokenLookup
	}

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// ExtractToken returns the first token any extractor finds
func ExtractToken(c *fiber.Ctx, extractors []TokenExtractor) (string, error) {
	err := error(ErrTokenMissingOrMalformed)
	for _, extractor := range extractors {
		raw, e := extractor(c)
		if raw != "" && e == nil {
			return raw, nil
		}
		err = e
	}
	return "", err
}

// TokenProvider builds a ProviderFactory from a token lookup. A missing
// token is passed as "" so the provider can report an anonymous visitor
// instead of a probe failure.
func TokenProvider(tokenLookup, authScheme string, build func(token string) guard.IdentityProvider) ProviderFactory {
	extractors := GetExtractors(tokenLookup, authScheme)
	return func(c *fiber.Ctx) (guard.IdentityProvider, error) {
		token, _ := ExtractToken(c, extractors)
		// fiber values point into a pooled request buffer
		return build(strings.Clone(token)), nil
	}
}

func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		if authScheme == "" {
			if a == "" {
				return "", ErrTokenMissingOrMalformed
			}
			return strings.TrimSpace(a), nil
		}
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissingOrMalformed
	}
}

func tokenFromQuery(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func tokenFromParam(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}
