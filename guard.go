package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-guard"

// Guard resolves and watches an IdentityProvider for one navigation target.
//
// A Guard is single use: Activate it once when the target is entered and
// Deactivate it when the target is left. The initial probe and the change
// notifications are two unordered writers to the same state cell; the most
// recent write wins. Once deactivated every write is discarded.
type Guard struct {
	id           string
	policy       Policy
	provider     IdentityProvider
	redirects    Redirects
	logger       Logger
	sink         EventSink
	tracer       trace.Tracer
	probeTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       AuthState
	activated   bool
	alive       bool
	unsubscribe Unsubscribe
	probeErr    error
	resolved    chan struct{}
	isResolved  bool
	done        chan struct{}
	watchers    map[uint64]chan AuthState
	nextWatcher uint64
	eventCtx    context.Context
}

// New creates an inactive guard for provider using policy.
func New(provider IdentityProvider, policy Policy, opts ...Option) *Guard {
	if provider == nil {
		panic("GUARD: identity provider is required")
	}

	if policy != RequireAuth && policy != RequireAnon {
		panic(fmt.Sprintf("GUARD: unknown policy %d", policy))
	}

	g := &Guard{
		id:        uuid.NewString(),
		policy:    policy,
		provider:  provider,
		redirects: DefaultRedirects(),
		logger:    defLogger{},
		sink:      noopEventSink{},
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		state:     StateUnknown,
		resolved:  make(chan struct{}),
		done:      make(chan struct{}),
		watchers:  make(map[uint64]chan AuthState),
		eventCtx:  context.Background(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// RequireAuthGuard is shorthand for New(provider, RequireAuth, opts...)
func RequireAuthGuard(provider IdentityProvider, opts ...Option) *Guard {
	return New(provider, RequireAuth, opts...)
}

// RequireAnonGuard is shorthand for New(provider, RequireAnon, opts...)
func RequireAnonGuard(provider IdentityProvider, opts ...Option) *Guard {
	return New(provider, RequireAnon, opts...)
}

func (g *Guard) ID() string {
	return g.id
}

func (g *Guard) Policy() Policy {
	return g.policy
}

// Activate starts the initial probe and the change subscription.
// The probe runs with ctx and is not cancelled by Deactivate.
func (g *Guard) Activate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g.mu.Lock()
	if g.activated {
		g.mu.Unlock()
		return ErrGuardActivated
	}
	g.activated = true
	g.alive = true
	g.state = StateUnknown
	g.eventCtx = context.WithoutCancel(ctx)
	g.mu.Unlock()

	g.record(Event{Type: EventActivated, To: StateUnknown})

	go g.probe(ctx)

	// the provider may notify synchronously from here, so the lock is not held
	unsubscribe := g.provider.OnAuthStateChanged(g.notify)
	if unsubscribe == nil {
		unsubscribe = func() {}
	}

	g.mu.Lock()
	if !g.alive {
		g.mu.Unlock()
		unsubscribe()
		return nil
	}
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	return nil
}

// Deactivate releases the subscription and closes watch streams. Later
// writes from an in-flight probe or a late notification are discarded.
// It is safe to call more than once.
func (g *Guard) Deactivate() {
	g.mu.Lock()
	if !g.alive {
		g.mu.Unlock()
		return
	}
	g.alive = false

	unsubscribe := g.unsubscribe
	g.unsubscribe = nil

	for id, ch := range g.watchers {
		close(ch)
		delete(g.watchers, id)
	}
	close(g.done)
	state := g.state
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	g.record(Event{Type: EventDeactivated, From: state, To: state})
}

// Active reports whether the guard is between Activate and Deactivate
func (g *Guard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.alive
}

// State returns the current AuthState
func (g *Guard) State() AuthState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ProbeErr returns the ProbeFailure recorded by the initial probe, if any
func (g *Guard) ProbeErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.probeErr
}

// Decision applies the guard policy to the current state
func (g *Guard) Decision() Decision {
	return g.policy.Decide(g.State(), g.redirects)
}

// Await blocks until the state is first resolved, the guard is deactivated,
// or ctx is done. It always returns the state current at return time.
func (g *Guard) Await(ctx context.Context) (AuthState, error) {
	select {
	case <-g.resolved:
		return g.State(), nil
	default:
	}

	select {
	case <-g.resolved:
		return g.State(), nil
	case <-g.done:
		return g.State(), ErrGuardInactive
	case <-ctx.Done():
		return g.State(), ctx.Err()
	}
}

// Watch returns a stream of the latest AuthState, starting with the current
// one. Slow readers only observe the most recent value. The stream is closed
// on Deactivate or when the returned stop func runs.
func (g *Guard) Watch() (<-chan AuthState, func()) {
	ch := make(chan AuthState, 1)

	g.mu.Lock()
	if g.activated && !g.alive {
		g.mu.Unlock()
		close(ch)
		return ch, func() {}
	}

	id := g.nextWatcher
	g.nextWatcher++
	ch <- g.state
	g.watchers[id] = ch
	g.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if c, ok := g.watchers[id]; ok {
				delete(g.watchers, id)
				close(c)
			}
		})
	}

	return ch, stop
}

func (g *Guard) probe(ctx context.Context) {
	if g.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.probeTimeout)
		defer cancel()
	}

	ctx, span := g.tracer.Start(ctx, "guard.probe", trace.WithAttributes(
		attribute.String("guard.id", g.id),
		attribute.String("guard.policy", g.policy.String()),
	))
	defer span.End()

	authenticated, err := g.callProbe(ctx)
	if err != nil {
		failure := NewProbeFailure(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, failure.Message)

		if g.write(StateUnauthenticated, SourceProbe, failure) {
			g.logger.Error("guard %s probe failed, treating as unauthenticated: %v", g.id, err)
			g.record(Event{
				Type:   EventProbeFailed,
				Source: SourceProbe,
				To:     StateUnauthenticated,
				Err:    failure,
			})
		}
		return
	}

	span.SetAttributes(attribute.Bool("guard.authenticated", authenticated))
	g.write(StateFromBool(authenticated), SourceProbe, nil)
}

// callProbe turns a panicking provider into a probe failure so a broken
// provider cannot take down the navigation layer.
func (g *Guard) callProbe(ctx context.Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("identity provider panic: %v", r)
		}
	}()
	return g.provider.IsAuthenticated(ctx)
}

func (g *Guard) notify(identity Identity) {
	g.write(StateFromIdentity(identity), SourceNotification, nil)
}

func (g *Guard) write(state AuthState, source Source, cause error) bool {
	g.mu.Lock()
	if !g.alive {
		g.mu.Unlock()
		g.logger.Debug("guard %s discarded %s write of %s after deactivation", g.id, source, state)
		g.record(Event{Type: EventWriteDiscarded, Source: source, To: state, Err: cause})
		return false
	}

	from := g.state
	g.state = state
	if source == SourceProbe {
		g.probeErr = cause
	}

	if !g.isResolved {
		g.isResolved = true
		close(g.resolved)
	}

	for _, ch := range g.watchers {
		offer(ch, state)
	}
	g.mu.Unlock()

	if from != state {
		g.record(Event{Type: EventStateChanged, Source: source, From: from, To: state})
	}

	return true
}

// offer replaces any unread value in ch. Callers hold g.mu, which makes the
// guard the only sender.
func offer(ch chan AuthState, state AuthState) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}

func (g *Guard) record(event Event) {
	event.GuardID = g.id
	event.Policy = g.policy
	if event.OccurredAt.IsZero() {
		event.OccurredAt = g.now()
	}

	g.mu.Lock()
	ctx := g.eventCtx
	g.mu.Unlock()

	if err := normalizeEventSink(g.sink).Record(ctx, event); err != nil {
		g.logger.Error("guard %s event sink error: %v", g.id, err)
	}
}
