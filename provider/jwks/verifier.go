package jwks

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-guard"
)

// SigningKey is a key given in configuration instead of fetched
type SigningKey struct {
	JWTAlg string
	Key    any
}

// Config configures a Verifier
type Config struct {
	// JWKSetURLs are fetched on start and refreshed hourly
	JWKSetURLs []string
	// SigningKeys by kid
	SigningKeys map[string]SigningKey
	Issuer      string
	Audience    []string
	Leeway      time.Duration
	// RefreshInterval defaults to one hour
	RefreshInterval time.Duration
	Logger          guard.Logger
	Clock           func() time.Time
}

// Verifier checks tokens issued by a third party identity service
type Verifier struct {
	keyfunc jwt.Keyfunc
	options []jwt.ParserOption
	logger  guard.Logger
	now     func() time.Time
	leeway  time.Duration
	closer  func()
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.JWKSetURLs) == 0 && len(cfg.SigningKeys) == 0 {
		return nil, ErrNoKeys
	}

	if cfg.Logger == nil {
		cfg.Logger = guard.DefaultLogger()
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}

	var givenKeys map[string]keyfunc.GivenKey
	if len(cfg.SigningKeys) > 0 {
		givenKeys = make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
		for kid, key := range cfg.SigningKeys {
			givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
				Algorithm: key.JWTAlg,
			})
		}
	}

	v := &Verifier{
		logger: cfg.Logger,
		now:    cfg.Clock,
		leeway: max(cfg.Leeway, 0),
		closer: func() {},
	}

	switch len(cfg.JWKSetURLs) {
	case 0:
		v.keyfunc = keyfunc.NewGiven(givenKeys).Keyfunc
	case 1:
		set, err := keyfunc.Get(cfg.JWKSetURLs[0], keyfuncOptions(cfg, givenKeys))
		if err != nil {
			return nil, fmt.Errorf("jwks: failed to get JWK Set: %w", err)
		}
		v.keyfunc = set.Keyfunc
		v.closer = set.EndBackground
	default:
		opts := keyfuncOptions(cfg, givenKeys)
		m := make(map[string]keyfunc.Options, len(cfg.JWKSetURLs))
		for _, url := range cfg.JWKSetURLs {
			m[url] = opts
		}
		multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
			KeySelector: keyfunc.KeySelectorFirst,
		})
		if err != nil {
			return nil, fmt.Errorf("jwks: failed to get JWK Sets: %w", err)
		}
		v.keyfunc = multi.Keyfunc
		v.closer = func() {
			for _, set := range multi.JWKSets() {
				set.EndBackground()
			}
		}
	}

	v.options = []jwt.ParserOption{
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		v.options = append(v.options, jwt.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audience) > 0 {
		v.options = append(v.options, jwt.WithAudience(cfg.Audience...))
	}
	if cfg.Leeway > 0 {
		v.options = append(v.options, jwt.WithLeeway(cfg.Leeway))
	}

	return v, nil
}

func keyfuncOptions(cfg Config, givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	logger := cfg.Logger
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to do a background refresh of JWK Set: %s", err)
		},
		RefreshInterval:   cfg.RefreshInterval,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	}
}

// Verify parses tokenString and checks signature, expiry, issuer and audience
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyfunc, v.options...)
	if err != nil {
		return nil, normalizeValidationError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// ProviderFor returns the identity provider for one request's token
func (v *Verifier) ProviderFor(token string) guard.IdentityProvider {
	return &Provider{verifier: v, token: token}
}

// Close stops background JWK Set refreshes
func (v *Verifier) Close() {
	v.closer()
}

// Provider answers for a single bearer token
type Provider struct {
	verifier *Verifier
	token    string
}

var _ guard.IdentityProvider = (*Provider)(nil)

func (p *Provider) IsAuthenticated(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if p.token == "" {
		return false, nil
	}

	if _, err := p.verifier.Verify(p.token); err != nil {
		p.verifier.logger.Debug("jwks token rejected: %v", err)
		return false, nil
	}

	return true, nil
}

// OnAuthStateChanged pushes a sign out once the token stops verifying,
// that is at expiry plus the configured leeway
func (p *Provider) OnAuthStateChanged(handler guard.AuthStateHandler) guard.Unsubscribe {
	if handler == nil || p.token == "" {
		return func() {}
	}

	claims, err := p.verifier.Verify(p.token)
	if err != nil {
		return func() {}
	}

	deadline := claims.Expires().Add(p.verifier.leeway)
	timer := time.AfterFunc(deadline.Sub(p.verifier.now()), func() {
		handler(nil)
	})

	return func() {
		timer.Stop()
	}
}
