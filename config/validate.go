package config

import (
	stderrors "errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/robfig/cron/v3"
)

var localPath = regexp.MustCompile(`^/([^/\\].*)?$`)

// Validate checks the configuration, including the section of the
// selected identity service only
func (c *BaseConfig) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(c,
			validation.Field(&c.Server),
			validation.Field(&c.Guard),
			validation.Field(&c.Persistence),
		)
	}, "invalid configuration"); err != nil {
		return err
	}

	var section func() error
	switch c.Guard.Provider {
	case ProviderJWKS:
		section = c.JWKS.validate
	default:
		section = c.Session.validate
	}

	if err := errors.ValidateWithOzzo(section, "invalid "+c.Guard.Provider+" configuration"); err != nil {
		return err
	}
	return nil
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
		validation.Field(&s.CSRFKey, validation.Length(32, 0)),
		validation.Field(&s.TracingEndpoint, is.URL),
	)
}

func (g Guard) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Provider, validation.Required, validation.In(ProviderSession, ProviderJWKS)),
		validation.Field(&g.AnonEntryPath, validation.Required, validation.Match(localPath)),
		validation.Field(&g.LandingPath, validation.Required, validation.Match(localPath)),
		validation.Field(&g.TokenLookup, validation.Required),
		validation.Field(&g.ResolveTimeout, validation.Required),
	)
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DSN, validation.Required),
	)
}

func (s Session) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&s.Issuer, validation.Required),
		validation.Field(&s.PasswordCost, validation.Min(4), validation.Max(31)),
		validation.Field(&s.SweepSchedule, validation.Required, validation.By(cronSchedule)),
	)
}

func (j JWKS) validate() error {
	return validation.ValidateStruct(&j,
		validation.Field(&j.URLs, validation.Required, validation.By(urlList)),
		validation.Field(&j.Issuer, validation.Required),
	)
}

func cronSchedule(value any) error {
	s, _ := value.(string)
	if _, err := cron.ParseStandard(s); err != nil {
		return stderrors.New("must be a valid cron schedule")
	}
	return nil
}

func urlList(value any) error {
	urls, _ := value.([]string)
	for _, u := range urls {
		if err := is.URL.Validate(u); err != nil {
			return stderrors.New("must contain valid URLs")
		}
	}
	return nil
}
