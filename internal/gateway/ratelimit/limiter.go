package ratelimit

import (
	"bytes"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/logger"
)

// Policy names.
const (
	PolicyGeneral = "general"
	PolicyAuth    = "auth"
)

// Default budgets.
const (
	DefaultWindow       = 15 * time.Minute
	DefaultGeneralLimit = 100
	DefaultAuthLimit    = 5
)

// Policy is one fixed-window budget.
type Policy struct {
	Name   string
	Limit  int64
	Window time.Duration
	// Error is returned to rejected callers.
	Error *domain.DomainError
	// Match selects the requests the policy counts. Nil matches all.
	Match func(r *http.Request, body []byte) bool
}

// GeneralPolicy counts every request.
func GeneralPolicy(limit int64, window time.Duration) Policy {
	return Policy{Name: PolicyGeneral, Limit: limit, Window: window, Error: domain.ErrRateLimited}
}

// AuthPolicy counts sign-in and sign-up operations only.
func AuthPolicy(limit int64, window time.Duration) Policy {
	return Policy{
		Name:   PolicyAuth,
		Limit:  limit,
		Window: window,
		Error:  domain.ErrAuthRateLimited,
		Match:  IsAuthOperation,
	}
}

// Config configures a Limiter.
type Config struct {
	Policies []Policy
	// TrustProxy reads the client address from X-Forwarded-For and
	// X-Real-IP.
	TrustProxy bool
	// OnReject is called with the policy name for every rejection.
	OnReject func(policy string)
}

// Limiter enforces its policies in order.
type Limiter struct {
	store     Store
	cfg       Config
	needsBody bool
	logger    logger.Logger
	now       func() time.Time
}

// New creates a Limiter over store.
func New(store Store, cfg Config, log logger.Logger) *Limiter {
	if log == nil {
		log = logger.Nop()
	}
	l := &Limiter{store: store, cfg: cfg, logger: log, now: time.Now}
	for _, p := range cfg.Policies {
		if p.Match != nil {
			l.needsBody = true
		}
	}
	return l
}

// Middleware counts the request against every matching policy. Each
// counted policy sets the RateLimit-* headers; the first exhausted one
// ends the request with 429. Store failures are logged and let the
// request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if l.needsBody {
			body = peekBody(r)
		}
		ip := ClientIP(r, l.cfg.TrustProxy)

		for _, p := range l.cfg.Policies {
			if p.Match != nil && !p.Match(r, body) {
				continue
			}
			win, err := l.store.Incr(r.Context(), p.Name+":"+ip, p.Window)
			if err != nil {
				logger.L(r.Context()).Error("rate limit store failed", "policy", p.Name, "error", err)
				continue
			}

			reset := l.secondsUntil(win.ResetAt)
			h := w.Header()
			h.Set("RateLimit-Policy", strconv.FormatInt(p.Limit, 10)+";w="+strconv.Itoa(int(p.Window.Seconds())))
			h.Set("RateLimit-Limit", strconv.FormatInt(p.Limit, 10))
			h.Set("RateLimit-Remaining", strconv.FormatInt(max(p.Limit-win.Count, 0), 10))
			h.Set("RateLimit-Reset", strconv.Itoa(reset))

			if win.Count > p.Limit {
				h.Set("Retry-After", strconv.Itoa(reset))
				if l.cfg.OnReject != nil {
					l.cfg.OnReject(p.Name)
				}
				logger.L(r.Context()).Warn("rate limit exceeded", "policy", p.Name, "client", ip, "count", win.Count)
				format.WriteError(w, http.StatusTooManyRequests, p.Error)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) secondsUntil(t time.Time) int {
	d := t.Sub(l.now())
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// IsAuthOperation reports whether the GraphQL query in the request names
// a sign-in or sign-up operation. Batched bodies match when any entry
// does.
func IsAuthOperation(r *http.Request, body []byte) bool {
	var queries []string
	if r.Method == http.MethodGet {
		queries = append(queries, r.URL.Query().Get("query"))
	} else if len(body) > 0 {
		res := gjson.GetBytes(body, "query")
		if !res.Exists() {
			res = gjson.GetBytes(body, "#.query")
		}
		if res.IsArray() {
			for _, q := range res.Array() {
				queries = append(queries, q.String())
			}
		} else {
			queries = append(queries, res.String())
		}
	}
	for _, q := range queries {
		q = strings.ToLower(q)
		if strings.Contains(q, "signin") || strings.Contains(q, "signup") {
			return true
		}
	}
	return false
}

// ClientIP returns the caller address. With trustProxy the first
// X-Forwarded-For hop wins, then X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// peekBody reads the body and puts it back. A read failure is replayed to
// the next reader.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), errReader{err}))
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
