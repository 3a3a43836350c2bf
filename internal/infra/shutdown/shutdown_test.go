package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingHooks(h *Handler, n int) func() []int {
	var (
		mu    sync.Mutex
		order []int
	)
	for i := 1; i <= n; i++ {
		h.OnShutdown("hook", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	return func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), order...)
	}
}

func TestHandler_TriggerRunsHooksInReverse(t *testing.T) {
	h := NewHandler(time.Second, nil)
	order := recordingHooks(h, 3)

	h.Trigger("test")
	require.NoError(t, h.Wait(context.Background()))

	assert.Equal(t, []int{3, 2, 1}, order())
	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second, nil)
	order := recordingHooks(h, 2)

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(context.Background()) }()

	// Wait must install its handler before the signal is sent.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
	assert.Equal(t, []int{2, 1}, order())
}

func TestHandler_ContextCancel(t *testing.T) {
	h := NewHandler(time.Second, nil)
	order := recordingHooks(h, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Wait(ctx))
	assert.Equal(t, []int{1}, order())
}

func TestHandler_JoinsHookErrors(t *testing.T) {
	h := NewHandler(time.Second, nil)
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := false

	h.OnShutdown("a", func(context.Context) error { return errA })
	h.OnShutdown("ok", func(context.Context) error { ran = true; return nil })
	h.OnShutdown("b", func(context.Context) error { return errB })

	err := h.Run("test")
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, err.Error(), "b: b failed")
	assert.True(t, ran)
}

func TestHandler_RunOnce(t *testing.T) {
	h := NewHandler(time.Second, nil)
	order := recordingHooks(h, 1)

	require.NoError(t, h.Run("first"))
	require.NoError(t, h.Run("second"))
	assert.Equal(t, []int{1}, order())
}

func TestHandler_HooksShareDeadline(t *testing.T) {
	h := NewHandler(20*time.Millisecond, nil)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := h.Run("test")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHandler_DefaultTimeout(t *testing.T) {
	h := NewHandler(0, nil)
	assert.Equal(t, DefaultTimeout, h.timeout)
}
