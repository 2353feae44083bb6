package web

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-guard"
	"github.com/valyala/fasthttp"
)

// AuthState streams the caller's AuthState as server sent events. The
// stream ends once the caller is signed out or the client goes away.
func (h *Handler) AuthState(c *fiber.Ctx) error {
	provider, err := h.cfg.Provider(c)
	if err != nil || provider == nil {
		h.cfg.Logger.Error("state stream provider failed: %v", err)
		provider = guard.FailingProvider(err)
	}

	g := guard.New(provider, guard.RequireAuth,
		guard.WithLogger(h.cfg.Logger),
		guard.WithRedirects(h.cfg.Redirects),
	)

	// the stream outlives the handler, so it must not use the request context
	if err := g.Activate(context.Background()); err != nil {
		return err
	}

	states, stop := g.Watch()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	heartbeat := h.cfg.Heartbeat
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer g.Deactivate()
		defer stop()
		streamStates(w, states, heartbeat)
	}))

	return nil
}

func streamStates(w *bufio.Writer, states <-chan guard.AuthState, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	last := guard.AuthState(-1)
	for {
		select {
		case state, ok := <-states:
			if !ok {
				return
			}
			if state == last {
				continue
			}
			last = state

			fmt.Fprintf(w, "event: state\ndata: %s\n\n", state)
			if err := w.Flush(); err != nil {
				return
			}

			if state == guard.StateUnauthenticated {
				return
			}
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}
