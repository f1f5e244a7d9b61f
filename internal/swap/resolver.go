package swap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scriptscrypt/solana-app-kit-sub000/internal/events"
	"github.com/scriptscrypt/solana-app-kit-sub000/internal/gateway"
)

// Resolver settles timed-out swaps in the background. A timeout means
// unknown outcome, not failure; the original caller may be gone, so
// the resolution is published on the event bus instead of returned.
type Resolver struct {
	gateway  *gateway.Gateway
	bus      *events.Bus
	interval time.Duration
	attempts int
	logger   *zap.Logger

	sub events.Subscription
}

func NewResolver(gw *gateway.Gateway, bus *events.Bus, interval time.Duration, attempts int, logger *zap.Logger) *Resolver {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if attempts <= 0 {
		attempts = 6
	}
	return &Resolver{
		gateway:  gw,
		bus:      bus,
		interval: interval,
		attempts: attempts,
		logger:   logger.Named("resolver"),
	}
}

// Start subscribes to timeout events. The passed context bounds every
// background poll spawned from here.
func (r *Resolver) Start(ctx context.Context) {
	r.sub = r.bus.SubscribeFunc(events.SwapTimedOut, func(_ context.Context, e events.Event) error {
		se, ok := e.(events.SwapEvent)
		if !ok || se.Signature.IsZero() {
			return nil
		}
		go r.track(ctx, se)
		return nil
	})
}

func (r *Resolver) Stop() {
	if r.sub != nil {
		r.sub.Unsubscribe()
	}
}

func (r *Resolver) track(ctx context.Context, se events.SwapEvent) {
	log := r.logger.With(zap.String("signature", se.Signature.String()))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for i := 0; i < r.attempts; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := r.gateway.CheckSignature(ctx, se.Signature)
		if err != nil {
			log.Debug("follow-up check failed", zap.Error(err))
			continue
		}

		switch st.State {
		case gateway.StateConfirmed:
			log.Info("timed-out swap confirmed on follow-up")
			resolved := se
			resolved.BaseEvent = events.BaseEvent{EventType: events.SwapResolved, EventTime: time.Now()}
			resolved.Err = ""
			_ = r.bus.Publish(resolved)
			return
		case gateway.StateFailed:
			log.Info("timed-out swap failed on follow-up", zap.String("error", st.Err))
			resolved := se
			resolved.BaseEvent = events.BaseEvent{EventType: events.SwapResolved, EventTime: time.Now()}
			resolved.Err = st.Err
			_ = r.bus.Publish(resolved)
			return
		}
	}

	log.Warn("swap still unresolved after follow-up budget")
}
