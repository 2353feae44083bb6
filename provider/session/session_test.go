package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/provider/session"
	"github.com/goliatone/go-guard/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

var signingKey = []byte("test-signing-key-0123456789abcdef")

func newService(t *testing.T, opts ...session.Option) (*session.Service, repository.Manager) {
	t.Helper()

	db, err := repository.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db))

	mngr := repository.NewRepositoryManager(db)
	tokens := session.NewTokenService(signingKey, "guardd", jwt.ClaimStrings{"scheduling"}, nopLogger{})

	opts = append([]session.Option{
		session.WithLogger(nopLogger{}),
		session.WithPasswordCost(bcrypt.MinCost),
	}, opts...)

	svc := session.NewService(mngr, tokens, opts...)

	_, err = svc.Register(context.Background(), "ada", "ada@example.com", "manager", "s3cret")
	require.NoError(t, err)

	return svc, mngr
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		token, claims, err := svc.Login(ctx, "ada@example.com", "s3cret")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "ada", claims.Username())
		assert.Equal(t, "manager", claims.Role())
		assert.NotEmpty(t, claims.SessionID())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "ada", "nope")
		assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "grace", "s3cret")
		assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	})
}

func TestLoginUnknownUserComparesAgainstDecoyHash(t *testing.T) {
	var hashes []string
	svc, _ := newService(t, session.WithPasswordComparer(func(password, hash string) error {
		hashes = append(hashes, hash)
		return session.ComparePasswordAndHash(password, hash)
	}))
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "grace", "s3cret")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "linus", "s3cret")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	require.Len(t, hashes, 2)
	assert.NotEmpty(t, hashes[0])
	assert.Equal(t, hashes[0], hashes[1], "decoy hash is computed once")

	cost, err := bcrypt.Cost([]byte(hashes[0]))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestProviderProbe(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "valid token", token: token, want: true},
		{name: "missing token", token: "", want: false},
		{name: "malformed token", token: "not-a-jwt", want: false},
		{name: "tampered token", token: token + "x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.ProviderFor(tt.token).IsAuthenticated(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestProviderProbeStorageFailure(t *testing.T) {
	svc, mngr := newService(t)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)

	require.NoError(t, mngr.DB().Close())

	ok, err := svc.ProviderFor(token).IsAuthenticated(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLogoutSignsOutLiveGuards(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	token, claims, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)

	g := guard.RequireAuthGuard(svc.ProviderFor(token), guard.WithLogger(nopLogger{}))
	require.NoError(t, g.Activate(ctx))
	defer g.Deactivate()

	state, err := g.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, guard.StateAuthenticated, state)
	assert.Equal(t, 1, svc.Hub().Subscribers(claims.SessionID()))

	require.NoError(t, svc.Logout(ctx, token))

	assert.Equal(t, guard.StateUnauthenticated, g.State())
	assert.Equal(t, guard.OutcomeRedirect, g.Decision().Outcome)

	ok, err := svc.ProviderFor(token).IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "revoked session must not authenticate")

	g.Deactivate()
	assert.Zero(t, svc.Hub().Subscribers(claims.SessionID()))
}

func TestLogoutIgnoresUnusableTokens(t *testing.T) {
	svc, _ := newService(t)
	assert.NoError(t, svc.Logout(context.Background(), ""))
	assert.NoError(t, svc.Logout(context.Background(), "garbage"))
}

func TestLogoutAll(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, claims, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)
	second, _, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)

	var pushed []guard.AuthState
	unsub := svc.ProviderFor(first).OnAuthStateChanged(func(identity guard.Identity) {
		pushed = append(pushed, guard.StateFromIdentity(identity))
	})
	defer unsub()

	n, err := svc.LogoutAll(ctx, claims.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []guard.AuthState{guard.StateUnauthenticated}, pushed)

	for _, token := range []string{first, second} {
		ok, err := svc.ProviderFor(token).IsAuthenticated(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	_, err = svc.LogoutAll(ctx, "not-a-uuid")
	assert.Error(t, err)
}

func TestExpiredSessionIsSignedOut(t *testing.T) {
	now := time.Now()
	svc, _ := newService(t,
		session.WithSessionTTL(time.Minute),
		session.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)

	svc.Tokens().WithClock(func() time.Time { return now.Add(2 * time.Minute) })

	_, err = svc.Tokens().Validate(token)
	assert.ErrorIs(t, err, session.ErrTokenExpired)
	assert.True(t, session.IsTokenError(err))

	ok, err := svc.ProviderFor(token).IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweep(t *testing.T) {
	now := time.Now()
	svc, _ := newService(t,
		session.WithSessionTTL(time.Minute),
		session.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)

	n, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	now = now.Add(2 * time.Minute)
	n, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStartSweeperRejectsBadSchedule(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.StartSweeper("not a schedule")
	assert.Error(t, err)

	stop, err := svc.StartSweeper("@every 1h")
	require.NoError(t, err)
	stop()
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	hub := session.NewHub()

	calls := 0
	unsub := hub.Subscribe("sid", func(guard.Identity) { calls++ })
	other := hub.Subscribe("sid", func(guard.Identity) {})

	assert.Equal(t, 2, hub.Publish("sid", nil))
	unsub()
	unsub()
	assert.Equal(t, 1, hub.Subscribers("sid"))

	hub.Publish("sid", nil)
	assert.Equal(t, 1, calls)

	other()
	assert.Zero(t, hub.Subscribers("sid"))
	assert.Zero(t, hub.Publish("sid", nil))
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := session.HashPasswordWithCost("pw", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, session.ComparePasswordAndHash("pw", hash))
	assert.ErrorIs(t, session.ComparePasswordAndHash("other", hash), session.ErrInvalidCredentials)

	_, err = session.HashPassword("")
	assert.ErrorIs(t, err, session.ErrNoEmptyString)

	assert.Error(t, session.ComparePasswordAndHash("pw", session.RandomPasswordHash()))
}
