package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// DefaultTimeout bounds the total time spent in hooks.
const DefaultTimeout = 10 * time.Second

// Hook releases one component.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Handler runs shutdown hooks once.
type Handler struct {
	timeout time.Duration
	logger  logger.Logger
	signals []os.Signal

	mu      sync.Mutex
	hooks   []namedHook
	trigger chan string
	once    sync.Once
	done    chan struct{}
}

// NewHandler creates a Handler listening for SIGINT and SIGTERM.
func NewHandler(timeout time.Duration, log logger.Logger) *Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		timeout: timeout,
		logger:  log,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		trigger: make(chan string, 1),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a hook. Hooks run in reverse order of registration.
func (h *Handler) OnShutdown(name string, fn Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, namedHook{name: name, fn: fn})
}

// Trigger starts shutdown without a signal, e.g. after a fatal serve error.
func (h *Handler) Trigger(reason string) {
	select {
	case h.trigger <- reason:
	default:
	}
}

// Wait blocks until a signal, a Trigger or ctx cancellation, then runs
// the hooks. Hook failures are joined into the returned error.
func (h *Handler) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, h.signals...)
	defer stop()

	reason := "context done"
	select {
	case <-sigCtx.Done():
		if ctx.Err() == nil {
			reason = "signal"
		}
	case reason = <-h.trigger:
	}
	return h.Run(reason)
}

// Run executes the hooks immediately. Only the first call has effect.
func (h *Handler) Run(reason string) error {
	var err error
	h.once.Do(func() {
		defer close(h.done)
		h.logger.Info("shutting down", "reason", reason, "timeout", h.timeout)

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		h.mu.Lock()
		hooks := make([]namedHook, len(h.hooks))
		copy(hooks, h.hooks)
		h.mu.Unlock()

		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			start := time.Now()
			if hookErr := hooks[i].fn(ctx); hookErr != nil {
				h.logger.Error("shutdown hook failed", "hook", hooks[i].name, "error", hookErr)
				errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, hookErr))
				continue
			}
			h.logger.Debug("shutdown hook done", "hook", hooks[i].name, "elapsed", time.Since(start))
		}
		err = errors.Join(errs...)
	})
	return err
}

// Done closes once the hooks have run.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
