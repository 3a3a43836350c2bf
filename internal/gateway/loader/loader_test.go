package loader

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) batch(_ context.Context, keys []string) ([]*string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), keys...))
	r.mu.Unlock()

	// Storage returns found items in arbitrary order; "missing" is absent.
	var found []*string
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i] != "missing" {
			v := keys[i]
			found = append(found, &v)
		}
	}
	return OrderByKey(keys, found, func(v *string) string { return *v }), nil
}

func TestLoader_CoalescesIntoOneBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	l := New(rec.batch)
	ctx := context.Background()

	a := l.Load(ctx, "a")
	b := l.Load(ctx, "b")
	a2 := l.Load(ctx, "a")
	missing := l.Load(ctx, "missing")

	va, err := a()
	require.NoError(t, err)
	assert.Equal(t, "a", *va)

	vb, err := b()
	require.NoError(t, err)
	assert.Equal(t, "b", *vb)

	va2, err := a2()
	require.NoError(t, err)
	assert.Same(t, va, va2)

	vm, err := missing()
	require.NoError(t, err)
	assert.Nil(t, vm)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{"a", "b", "missing"}, rec.calls[0])
}

func TestLoader_CachesAcrossBatches(t *testing.T) {
	rec := &recorder{}
	l := New(rec.batch)
	ctx := context.Background()

	_, err := l.Load(ctx, "a")()
	require.NoError(t, err)

	got, err := l.LoadMany(ctx, []string{"b", "a", "c"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "b", *got[0])
	assert.Equal(t, "a", *got[1])

	require.Len(t, rec.calls, 2)
	assert.Equal(t, []string{"b", "c"}, rec.calls[1])

	l.Clear("a")
	_, err = l.Load(ctx, "a")()
	require.NoError(t, err)
	assert.Len(t, rec.calls, 3)
}

func TestLoader_Prime(t *testing.T) {
	rec := &recorder{}
	l := New(rec.batch)
	v := "primed"
	l.Prime("p", &v)

	got, err := l.Load(context.Background(), "p")()
	require.NoError(t, err)
	assert.Equal(t, "primed", *got)
	assert.Empty(t, rec.calls)
}

func TestLoader_ConcurrentForcers(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	release := make(chan struct{})
	l := New(func(_ context.Context, keys []int) ([]int, error) {
		calls.Add(1)
		<-release
		out := make([]int, len(keys))
		for i, k := range keys {
			out[i] = k * 10
		}
		return out, nil
	})
	ctx := context.Background()

	thunks := make([]Thunk[int], 20)
	for i := range thunks {
		thunks[i] = l.Load(ctx, i%5)
	}

	var wg sync.WaitGroup
	results := make([]int, len(thunks))
	for i, th := range thunks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := th()
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for i, v := range results {
		assert.Equal(t, (i%5)*10, v, strconv.Itoa(i))
	}
}

func TestLoader_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("batch error reaches every key", func(t *testing.T) {
		l := New(func(context.Context, []string) ([]int, error) { return nil, boom })
		a, b := l.Load(ctx, "a"), l.Load(ctx, "b")
		_, err := a()
		assert.ErrorIs(t, err, boom)
		_, err = b()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("length mismatch", func(t *testing.T) {
		l := New(func(context.Context, []string) ([]int, error) { return []int{1}, nil })
		_, err := l.LoadMany(ctx, []string{"a", "b"})
		assert.ErrorContains(t, err, "2 keys")
	})

	t.Run("panic", func(t *testing.T) {
		l := New(func(context.Context, []string) ([]int, error) { panic("bad") })
		_, err := l.Load(ctx, "a")()
		assert.ErrorContains(t, err, "panicked")
	})

	t.Run("canceled context", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		defer close(release)
		l := New(func(context.Context, []string) ([]int, error) {
			close(started)
			<-release
			return []int{1}, nil
		})
		cctx, cancel := context.WithCancel(ctx)
		th := l.Load(cctx, "a")
		go l.Dispatch(ctx)
		<-started
		cancel()

		_, err := th()
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoader_BatchObserver(t *testing.T) {
	var sizes []int
	rec := &recorder{}
	l := New(rec.batch, WithBatchObserver(func(n int) { sizes = append(sizes, n) }))

	_, err := l.LoadMany(context.Background(), []string{"a", "b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, sizes)
}

func TestOrderByKey(t *testing.T) {
	type item struct{ id string }
	items := []*item{{id: "c"}, {id: "a"}}
	got := OrderByKey([]string{"a", "b", "c"}, items, func(i *item) string { return i.id })
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].id)
	assert.Nil(t, got[1])
	assert.Equal(t, "c", got[2].id)
}
