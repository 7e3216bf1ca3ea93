// Package notify is an in-memory event bus for post-finalization fanout
// (operator notifications and similar best-effort reactions). It is not
// durable; a dropped notification never affects the order itself.
package notify

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"storefront/internal/domain/event"
	"storefront/internal/observability"
	"storefront/internal/observability/logctx"
)

const (
	componentNotify = "notify"

	handlerTimeout = 30 * time.Second
)

// Dispatcher fans published events out to subscribed handlers from a single
// background loop. Handler errors and panics are logged, never propagated.
type Dispatcher struct {
	mu          sync.RWMutex
	subs        map[string][]event.Handler
	queue       chan event.Event
	startOnce   sync.Once
	stopOnce    sync.Once
	cancel      context.CancelFunc
	concurrency int
	log         observability.Logger
}

func NewDispatcher(logger observability.Logger) *Dispatcher {
	return &Dispatcher{
		subs:        make(map[string][]event.Handler),
		queue:       make(chan event.Event, 1024),
		concurrency: 8,
		log:         logger.With(observability.F("component", componentNotify)),
	}
}

func (d *Dispatcher) Subscribe(eventName string, h event.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[eventName] = append(d.subs[eventName], h)
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		d.cancel = cancel
		go d.dispatchLoop(bg)
		logctx.FromOr(ctx, d.log).Info("dispatcher_started")
	})
}

// Stop cancels the dispatch loop. The queue is deliberately never closed: a
// Publish racing Stop must not panic on a closed channel. Events enqueued
// after Stop sit in the buffer and are dropped with it.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.stopOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		logctx.FromOr(ctx, d.log).Info("dispatcher_stopped")
	})
}

func (d *Dispatcher) Publish(ctx context.Context, e event.Event) error {
	if e == nil {
		return nil
	}
	select {
	case d.queue <- e:
		logctx.FromOr(ctx, d.log).Debug("event_enqueued",
			observability.F("event", e.EventName()),
		)
		return nil
	case <-ctx.Done():
		logctx.FromOr(ctx, d.log).Warn("event_enqueue_aborted",
			observability.F("event", e.EventName()),
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (d *Dispatcher) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			d.fanout(ctx, e)
		}
	}
}

func (d *Dispatcher) fanout(ctx context.Context, e event.Event) {
	name := e.EventName()

	d.mu.RLock()
	handlers := append([]event.Handler(nil), d.subs[name]...)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	ctx = context.WithoutCancel(ctx)
	baseLogger := d.log.With(observability.F("event", name))

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		h := h
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					baseLogger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			hctx = logctx.With(hctx, baseLogger)
			err := h(hctx, e)
			cancel()
			if err != nil {
				baseLogger.Warn("event_handler_error", observability.F("error", err))
			}
		}()
	}

	wg.Wait()

	baseLogger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
}
