package receiver_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/prilive-com/gramflow/tg"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSink records every update a transport delivers, tagged with
// whether it arrived via Dispatch or Go.
type recordingSink struct {
	mu       sync.Mutex
	dispatch []tg.Update
	async    []tg.Update
	done     chan struct{} // closed-once signal, optional
	once     sync.Once
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) Dispatch(_ context.Context, u tg.Update) {
	s.mu.Lock()
	s.dispatch = append(s.dispatch, u)
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
}

func (s *recordingSink) Go(_ context.Context, u tg.Update) {
	s.mu.Lock()
	s.async = append(s.async, u)
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
}

func (s *recordingSink) dispatched() []tg.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tg.Update(nil), s.dispatch...)
}

func (s *recordingSink) asyncDelivered() []tg.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tg.Update(nil), s.async...)
}

