package config

import (
	"time"
)

const (
	ProviderSession = "session"
	ProviderJWKS    = "jwks"

	DefaultAddress       = ":8080"
	DefaultTokenLookup   = "header:Authorization,cookie:guard_session"
	DefaultCookieName    = "guard_session"
	DefaultSweepSchedule = "@every 15m"
	DefaultDSN           = "file:guard.db?cache=shared"
	EnvPrefix            = "GUARD_"
)

// BaseConfig is the configuration of the guardd service
type BaseConfig struct {
	Server      Server      `yaml:"server" json:"server" envPrefix:"SERVER_"`
	Guard       Guard       `yaml:"guard" json:"guard"`
	Session     Session     `yaml:"session" json:"session" envPrefix:"SESSION_"`
	JWKS        JWKS        `yaml:"jwks" json:"jwks" envPrefix:"JWKS_"`
	Persistence Persistence `yaml:"persistence" json:"persistence" envPrefix:"DB_"`
}

type Server struct {
	Address      string `yaml:"address" json:"address" env:"ADDRESS"`
	Debug        bool   `yaml:"debug" json:"debug" env:"DEBUG"`
	CookieSecure bool   `yaml:"cookie_secure" json:"cookie_secure" env:"COOKIE_SECURE"`
	// CSRFKey signs form tokens; a random per process key is used when empty
	CSRFKey string `yaml:"csrf_key" json:"-" env:"CSRF_KEY"`
	// TracingEndpoint is an OTLP/HTTP traces URL; tracing is off when empty
	TracingEndpoint string `yaml:"tracing_endpoint" json:"tracing_endpoint" env:"TRACING_ENDPOINT"`
}

type Guard struct {
	// Provider selects the identity service, session or jwks
	Provider       string        `yaml:"provider" json:"provider" env:"PROVIDER"`
	AnonEntryPath  string        `yaml:"anon_entry_path" json:"anon_entry_path" env:"ANON_ENTRY_PATH"`
	LandingPath    string        `yaml:"landing_path" json:"landing_path" env:"LANDING_PATH"`
	TokenLookup    string        `yaml:"token_lookup" json:"token_lookup" env:"TOKEN_LOOKUP"`
	AuthScheme     string        `yaml:"auth_scheme" json:"auth_scheme" env:"AUTH_SCHEME"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout" json:"resolve_timeout" env:"RESOLVE_TIMEOUT"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" json:"probe_timeout" env:"PROBE_TIMEOUT"`
}

type Session struct {
	SigningKey    string        `yaml:"signing_key" json:"-" env:"SIGNING_KEY"`
	Issuer        string        `yaml:"issuer" json:"issuer" env:"ISSUER"`
	Audience      []string      `yaml:"audience" json:"audience" env:"AUDIENCE" envSeparator:","`
	TTL           time.Duration `yaml:"ttl" json:"ttl" env:"TTL"`
	CookieName    string        `yaml:"cookie_name" json:"cookie_name" env:"COOKIE_NAME"`
	SweepSchedule string        `yaml:"sweep_schedule" json:"sweep_schedule" env:"SWEEP_SCHEDULE"`
	PasswordCost  int           `yaml:"password_cost" json:"password_cost" env:"PASSWORD_COST"`
}

type JWKS struct {
	URLs     []string      `yaml:"urls" json:"urls" env:"URLS" envSeparator:","`
	Issuer   string        `yaml:"issuer" json:"issuer" env:"ISSUER"`
	Audience []string      `yaml:"audience" json:"audience" env:"AUDIENCE" envSeparator:","`
	Leeway   time.Duration `yaml:"leeway" json:"leeway" env:"LEEWAY"`
}

type Persistence struct {
	DSN string `yaml:"dsn" json:"dsn" env:"DSN"`
}

// Default returns the configuration used when nothing overrides it
func Default() *BaseConfig {
	cfg := &BaseConfig{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in zero values with defaults
func (c *BaseConfig) Normalize() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}

	if c.Guard.Provider == "" {
		c.Guard.Provider = ProviderSession
	}
	if c.Guard.AnonEntryPath == "" {
		c.Guard.AnonEntryPath = "/login"
	}
	if c.Guard.LandingPath == "" {
		c.Guard.LandingPath = "/"
	}
	if c.Guard.TokenLookup == "" {
		c.Guard.TokenLookup = DefaultTokenLookup
	}
	if c.Guard.AuthScheme == "" {
		c.Guard.AuthScheme = "Bearer"
	}
	if c.Guard.ResolveTimeout <= 0 {
		c.Guard.ResolveTimeout = 2 * time.Second
	}
	if c.Guard.ProbeTimeout <= 0 {
		c.Guard.ProbeTimeout = 5 * time.Second
	}

	if c.Session.Issuer == "" {
		c.Session.Issuer = "guardd"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Session.SweepSchedule == "" {
		c.Session.SweepSchedule = DefaultSweepSchedule
	}
	if c.Session.PasswordCost == 0 {
		c.Session.PasswordCost = 12
	}

	if c.Persistence.DSN == "" {
		c.Persistence.DSN = DefaultDSN
	}
}

func (c *BaseConfig) GetAnonEntryPath() string {
	return c.Guard.AnonEntryPath
}

func (c *BaseConfig) GetLandingPath() string {
	return c.Guard.LandingPath
}

func (c *BaseConfig) GetTokenLookup() string {
	return c.Guard.TokenLookup
}

func (c *BaseConfig) GetAuthScheme() string {
	return c.Guard.AuthScheme
}

func (c *BaseConfig) GetResolveTimeout() time.Duration {
	return c.Guard.ResolveTimeout
}

func (c *BaseConfig) GetProbeTimeout() time.Duration {
	return c.Guard.ProbeTimeout
}

func (c *BaseConfig) GetCookieName() string {
	return c.Session.CookieName
}

func (c *BaseConfig) GetCookieSecure() bool {
	return c.Server.CookieSecure
}
