package timing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTrace_Header(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tr := newTrace(clock.now)

	tr.Start(PhaseParse)
	clock.advance(120 * time.Microsecond)
	tr.End(PhaseParse, "")

	tr.Start(PhaseExecution)
	clock.advance(3400 * time.Microsecond)
	tr.End(PhaseExecution, `students "all"`)

	clock.advance(380 * time.Microsecond)

	assert.Equal(t,
		`parse;dur=0.12, execution;dur=3.40;desc="students 'all'", total;dur=3.90`,
		tr.Header())
}

func TestTrace_StartEnd(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tr := newTrace(clock.now)

	tr.End("never-started", "")
	assert.Empty(t, tr.Entries())

	tr.Measure(PhaseAdmission, "", func() { clock.advance(time.Millisecond) })
	tr.Add("db", 2*time.Millisecond, "")

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Name: PhaseAdmission, Duration: time.Millisecond}, entries[0])
	assert.Equal(t, "db;dur=2.00", entries[1].String())
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	tr := New()
	assert.Same(t, tr, FromContext(WithTrace(context.Background(), tr)))
}
