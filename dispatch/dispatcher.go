package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prilive-com/gramflow/internal/metrics"
	"github.com/prilive-com/gramflow/tg"
)

// DefaultMaxInFlight caps concurrent asynchronous dispatches. Past the cap,
// Go degrades to a synchronous dispatch on the caller, which applies
// backpressure to the transport instead of dropping updates.
const DefaultMaxInFlight = 64

// HandlerFunc processes one update. The context is the dispatch context;
// no per-handler timeout is enforced, so handlers must honor cancellation
// themselves if they do slow work.
type HandlerFunc func(ctx context.Context, u tg.Update) error

// Predicate decides whether a handler fires for an update.
type Predicate func(u tg.Update) bool

type registration struct {
	name string
	pred Predicate
	fn   HandlerFunc
}

// Dispatcher fans incoming updates out to matching handlers.
// Construct with New, register handlers, then hand it updates; the first
// dispatch freezes the registration set.
type Dispatcher struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	maxInFlight int

	mu     sync.Mutex
	regs   []registration
	frozen atomic.Bool

	slots    chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics attaches a metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithMaxInFlight sets the asynchronous dispatch ceiling.
func WithMaxInFlight(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxInFlight = n
		}
	}
}

// New creates an empty Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		maxInFlight: DefaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.slots = make(chan struct{}, d.maxInFlight)
	return d
}

// Handle registers a handler with an explicit predicate.
// Registration order is match-attempt order. Panics if called after the
// first dispatch: the handler set is immutable once updates flow.
func (d *Dispatcher) Handle(pred Predicate, fn HandlerFunc) {
	d.register("custom", pred, fn)
}

func (d *Dispatcher) register(name string, pred Predicate, fn HandlerFunc) {
	if d.frozen.Load() {
		panic("gramflow/dispatch: handler registered after dispatch started")
	}
	if pred == nil || fn == nil {
		panic("gramflow/dispatch: nil predicate or handler")
	}
	d.mu.Lock()
	d.regs = append(d.regs, registration{name: name, pred: pred, fn: fn})
	d.mu.Unlock()
}

// OnCommand registers a handler for the /name command.
func (d *Dispatcher) OnCommand(name string, fn HandlerFunc) {
	d.register("command:"+name, Command(name), fn)
}

// OnText registers a handler for text messages containing substr
// (case-insensitive).
func (d *Dispatcher) OnText(substr string, fn HandlerFunc) {
	d.register("text:"+substr, TextContains(substr), fn)
}

// OnAnyText registers a handler for every plain text message.
func (d *Dispatcher) OnAnyText(fn HandlerFunc) {
	d.register("text", Kind(tg.KindText), fn)
}

// OnSticker registers a handler for sticker messages.
func (d *Dispatcher) OnSticker(fn HandlerFunc) {
	d.register("sticker", Kind(tg.KindSticker), fn)
}

// OnMedia registers a handler for non-sticker media messages.
func (d *Dispatcher) OnMedia(fn HandlerFunc) {
	d.register("media", Kind(tg.KindMedia), fn)
}

// OnCallback registers a handler for callback queries whose data starts
// with prefix. An empty prefix matches every callback.
func (d *Dispatcher) OnCallback(prefix string, fn HandlerFunc) {
	d.register("callback:"+prefix, CallbackPrefix(prefix), fn)
}

// Len returns the number of registered handlers.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.regs)
}

// Dispatch runs every matching handler for the update, in registration
// order, synchronously on the caller. A handler failure never prevents the
// remaining handlers from running.
func (d *Dispatcher) Dispatch(ctx context.Context, u tg.Update) {
	d.frozen.Store(true)

	if d.metrics != nil {
		d.metrics.Dispatches.WithLabelValues(u.Kind().String()).Inc()
	}

	d.mu.Lock()
	regs := d.regs
	d.mu.Unlock()

	for _, reg := range regs {
		if !reg.pred(u) {
			continue
		}
		d.invoke(ctx, reg, u)
	}
}

// Go dispatches the update on a tracked goroutine and returns immediately.
// When the in-flight ceiling is reached it falls back to a synchronous
// dispatch on the caller.
func (d *Dispatcher) Go(ctx context.Context, u tg.Update) {
	d.frozen.Store(true)

	select {
	case d.slots <- struct{}{}:
		d.inFlight.Add(1)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer func() {
				d.inFlight.Add(-1)
				<-d.slots
			}()
			d.Dispatch(ctx, u)
		}()
	default:
		d.logger.Warn("dispatch ceiling reached, running synchronously",
			"update_id", u.UpdateID,
			"max_in_flight", d.maxInFlight,
		)
		d.Dispatch(ctx, u)
	}
}

// Drain waits for in-flight asynchronous dispatches to finish.
// Returns ctx.Err() if the context expires first; the bounded grace period
// during shutdown comes from the caller's context deadline.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight returns the number of asynchronous dispatches currently running.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

func (d *Dispatcher) invoke(ctx context.Context, reg registration, u tg.Update) {
	defer func() {
		if r := recover(); r != nil {
			if d.metrics != nil {
				d.metrics.HandlerPanics.Inc()
			}
			d.logger.Error("handler panicked",
				"handler", reg.name,
				"update_id", u.UpdateID,
				"panic", r,
			)
		}
	}()

	if err := reg.fn(ctx, u); err != nil {
		if d.metrics != nil {
			d.metrics.HandlerErrors.Inc()
		}
		d.logger.Error("handler failed",
			"handler", reg.name,
			"update_id", u.UpdateID,
			"error", err,
		)
	}
}
