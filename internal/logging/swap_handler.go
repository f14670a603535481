package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// swapHandler forwards to a handler that Initialize can replace, so a logger
// handed out earlier picks up the new format, output and journal.
// Handlers derived with WithAttrs or WithGroup follow the same target.
type swapHandler struct {
	target *atomic.Pointer[slog.Handler]
	ops    []func(slog.Handler) slog.Handler
	cache  *atomic.Pointer[derivedHandler]
}

// derivedHandler is ops applied to one stored target.
type derivedHandler struct {
	src *slog.Handler
	h   slog.Handler
}

func newSwapHandler(h slog.Handler) *swapHandler {
	target := &atomic.Pointer[slog.Handler]{}
	target.Store(&h)
	return &swapHandler{target: target, cache: &atomic.Pointer[derivedHandler]{}}
}

// swap replaces the target for this handler and everything derived from it.
func (s *swapHandler) swap(h slog.Handler) {
	s.target.Store(&h)
}

func (s *swapHandler) current() slog.Handler {
	src := s.target.Load()
	if len(s.ops) == 0 {
		return *src
	}
	if d := s.cache.Load(); d != nil && d.src == src {
		return d.h
	}
	h := *src
	for _, op := range s.ops {
		h = op(h)
	}
	s.cache.Store(&derivedHandler{src: src, h: h})
	return h
}

func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	return s.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (s *swapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return s.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s *swapHandler) derive(op func(slog.Handler) slog.Handler) *swapHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(s.ops), len(s.ops)+1)
	copy(ops, s.ops)
	return &swapHandler{
		target: s.target,
		ops:    append(ops, op),
		cache:  &atomic.Pointer[derivedHandler]{},
	}
}
