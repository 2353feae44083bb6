package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/repository"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DefaultSessionTTL is how long a new session stays valid
const DefaultSessionTTL = 12 * time.Hour

// Service is the first party identity service: it signs users in, backs
// their tokens with revocable sessions and pushes sign outs to live guards.
type Service struct {
	repo   repository.Manager
	tokens *TokenService
	hub    *Hub
	ttl    time.Duration
	cost   int
	logger guard.Logger
	now    func() time.Time

	compare   func(password, hash string) error
	decoyOnce sync.Once
	decoy     string
}

type Option func(*Service)

func WithLogger(logger guard.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithPasswordCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

func WithHub(hub *Hub) Option {
	return func(s *Service) {
		if hub != nil {
			s.hub = hub
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPasswordComparer replaces the bcrypt comparison used by Login
func WithPasswordComparer(compare func(password, hash string) error) Option {
	return func(s *Service) {
		if compare != nil {
			s.compare = compare
		}
	}
}

func NewService(repo repository.Manager, tokens *TokenService, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tokens: tokens,
		hub:    NewHub(),
		ttl:    DefaultSessionTTL,
		cost:   DefaultPasswordCost,
		logger: guard.DefaultLogger(),
		now:    time.Now,

		compare: ComparePasswordAndHash,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *Service) Hub() *Hub {
	return s.hub
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Register creates a user account with a hashed password
func (s *Service) Register(ctx context.Context, username, email, role, password string) (*repository.User, error) {
	hash, err := HashPasswordWithCost(password, s.cost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Users().Create(ctx, &repository.User{
		Username:     strings.TrimSpace(username),
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("registered user %s (%s)", user.Username, user.ID)
	return user, nil
}

// Login checks the credentials and opens a new session
func (s *Service) Login(ctx context.Context, identifier, password string) (string, *Claims, error) {
	user, err := s.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Debug("login for unknown identifier %q", identifier)
			// same bcrypt work as a known user, so timing does not leak accounts
			_ = s.compare(password, s.decoyHash())
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.compare(password, user.PasswordHash); err != nil {
		s.logger.Debug("login password mismatch for %s", user.ID)
		return "", nil, err
	}

	now := s.now().UTC()
	record, err := s.repo.Sessions().Create(ctx, &repository.Session{
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", nil, err
	}

	token, claims, err := s.tokens.Generate(userIdentity{user}, record.ID.String(), record.ExpiresAt)
	if err != nil {
		return "", nil, err
	}

	if err := s.repo.Users().TrackLogin(ctx, user.ID, now); err != nil {
		s.logger.Error("unable to track login for %s: %v", user.ID, err)
	}

	s.logger.Info("user %s signed in, session %s", user.ID, record.ID)
	return token, claims, nil
}

func (s *Service) decoyHash() string {
	s.decoyOnce.Do(func() {
		s.decoy = RandomPasswordHashWithCost(s.cost)
	})
	return s.decoy
}

// Logout revokes the session behind token and signs out every guard
// watching it. Unusable tokens have nothing to revoke.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		if IsTokenError(err) {
			return nil
		}
		return err
	}

	sid, err := uuid.Parse(claims.SID)
	if err != nil {
		return nil
	}

	revoked, err := s.repo.Sessions().Revoke(ctx, sid, s.now())
	if err != nil {
		return err
	}

	n := s.hub.Publish(claims.SID, nil)
	s.logger.Info("session %s signed out (revoked=%t, notified=%d)", sid, revoked, n)
	return nil
}

// LogoutAll revokes every live session of userID
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryBadInput, "invalid user id").
			WithCode(errors.CodeBadRequest)
	}

	ids, err := s.repo.Sessions().RevokeUser(ctx, id, s.now())
	if err != nil {
		return 0, err
	}

	for _, sid := range ids {
		s.hub.Publish(sid.String(), nil)
	}

	return len(ids), nil
}

// Sweep deletes expired and revoked sessions
func (s *Service) Sweep(ctx context.Context) (int, error) {
	n, err := s.repo.Sessions().DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("swept %d sessions", n)
	}
	return n, nil
}

// StartSweeper runs Sweep on the cron schedule spec until stop is called
func (s *Service) StartSweeper(spec string) (stop func(), err error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Error("session sweep failed: %v", err)
		}
	}); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid sweep schedule").
			WithCode(errors.CodeBadRequest)
	}

	c.Start()
	return func() {
		<-c.Stop().Done()
	}, nil
}

// ProviderFor returns the identity provider for one request's token
func (s *Service) ProviderFor(token string) guard.IdentityProvider {
	p := &Provider{service: s, token: token}
	if token != "" {
		p.claims, p.tokenErr = s.tokens.Validate(token)
	}
	return p
}

type userIdentity struct {
	user *repository.User
}

func (u userIdentity) ID() string       { return u.user.ID.String() }
func (u userIdentity) Username() string { return u.user.Username }
func (u userIdentity) Email() string    { return u.user.Email }
func (u userIdentity) Role() string     { return u.user.Role }
