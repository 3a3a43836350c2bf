// Package timing records per-request phase durations and renders them as
// a Server-Timing header.
package timing

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// HeaderName is the response header carrying the trace.
const HeaderName = "Server-Timing"

// Phase names.
const (
	PhaseParse     = "parse"
	PhaseAdmission = "admission"
	PhaseExecution = "execution"
	PhaseTotal     = "total"
)

// Entry is one measured phase.
type Entry struct {
	Name     string
	Duration time.Duration
	Desc     string
}

// Trace collects entries for one request. It is safe for concurrent use.
type Trace struct {
	mu      sync.Mutex
	start   time.Time
	open    map[string]time.Time
	entries []Entry
	now     func() time.Time
}

// New starts a trace.
func New() *Trace {
	return newTrace(time.Now)
}

func newTrace(now func() time.Time) *Trace {
	return &Trace{start: now(), open: map[string]time.Time{}, now: now}
}

// Start opens a phase. Starting an open phase restarts it.
func (t *Trace) Start(name string) {
	t.mu.Lock()
	t.open[name] = t.now()
	t.mu.Unlock()
}

// End closes a phase and records it. Ending a phase that was never
// started is a no-op.
func (t *Trace) End(name, desc string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	started, ok := t.open[name]
	if !ok {
		return
	}
	delete(t.open, name)
	t.entries = append(t.entries, Entry{Name: name, Duration: t.now().Sub(started), Desc: desc})
}

// Measure runs fn as a phase.
func (t *Trace) Measure(name, desc string, fn func()) {
	t.Start(name)
	defer t.End(name, desc)
	fn()
}

// Add records a phase measured elsewhere.
func (t *Trace) Add(name string, d time.Duration, desc string) {
	t.mu.Lock()
	t.entries = append(t.entries, Entry{Name: name, Duration: d, Desc: desc})
	t.mu.Unlock()
}

// Entries returns a copy of the recorded entries in record order.
func (t *Trace) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Header renders the entries plus a closing total entry, e.g.
// `parse;dur=0.12, execution;dur=3.40;desc="students", total;dur=3.90`.
func (t *Trace) Header() string {
	t.mu.Lock()
	entries := append([]Entry(nil), t.entries...)
	total := t.now().Sub(t.start)
	t.mu.Unlock()

	entries = append(entries, Entry{Name: PhaseTotal, Duration: total})
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// String renders the entry in Server-Timing syntax with the duration in
// milliseconds to two decimals.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteString(";dur=")
	b.WriteString(strconv.FormatFloat(float64(e.Duration)/float64(time.Millisecond), 'f', 2, 64))
	if e.Desc != "" {
		b.WriteString(`;desc="`)
		b.WriteString(strings.ReplaceAll(e.Desc, `"`, `'`))
		b.WriteString(`"`)
	}
	return b.String()
}

type ctxKey struct{}

// WithTrace attaches t to ctx.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the request trace, or nil.
func FromContext(ctx context.Context) *Trace {
	t, _ := ctx.Value(ctxKey{}).(*Trace)
	return t
}
