package guard

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option customizes guard construction.
type Option func(*Guard)

// WithLogger sets the guard logger
func WithLogger(logger Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRedirects sets the redirect targets, empty fields keep their defaults
func WithRedirects(redirects Redirects) Option {
	return func(g *Guard) {
		g.redirects = redirects.normalize()
	}
}

// WithConfig reads redirect targets from cfg
func WithConfig(cfg Config) Option {
	return func(g *Guard) {
		g.redirects = RedirectsFromConfig(cfg)
	}
}

// WithEventSink registers a sink for guard lifecycle events
func WithEventSink(sink EventSink) Option {
	return func(g *Guard) {
		g.sink = normalizeEventSink(sink)
	}
}

// WithProbeTimeout bounds the initial probe. A probe that times out is a
// ProbeFailure and resolves to Unauthenticated.
func WithProbeTimeout(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.probeTimeout = d
		}
	}
}

// WithTracer overrides the otel tracer used for probe spans
func WithTracer(tracer trace.Tracer) Option {
	return func(g *Guard) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(g *Guard) {
		if clock != nil {
			g.now = clock
		}
	}
}

// WithID overrides the generated instance id, mostly for log correlation
func WithID(id string) Option {
	return func(g *Guard) {
		if id != "" {
			g.id = id
		}
	}
}
