package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/core/service"
	"github.com/educationelly/educationelly-graphql/internal/gateway/admission"
	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/gateway/ratelimit"
	"github.com/educationelly/educationelly-graphql/internal/gateway/session"
	"github.com/educationelly/educationelly-graphql/internal/graph"
	"github.com/educationelly/educationelly-graphql/internal/storage"
	"github.com/educationelly/educationelly-graphql/internal/storage/memory"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/metric"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// countingStudents records every call that reaches the student collection.
type countingStudents struct {
	storage.Collection[*domain.Student]
	calls atomic.Int64
}

func (c *countingStudents) FindByID(ctx context.Context, id string) (*domain.Student, error) {
	c.calls.Add(1)
	return c.Collection.FindByID(ctx, id)
}

func (c *countingStudents) FindByIDs(ctx context.Context, ids []string) ([]*domain.Student, error) {
	c.calls.Add(1)
	return c.Collection.FindByIDs(ctx, ids)
}

func (c *countingStudents) Find(ctx context.Context, q storage.Query) ([]*domain.Student, error) {
	c.calls.Add(1)
	return c.Collection.Find(ctx, q)
}

func (c *countingStudents) FindOne(ctx context.Context, filter storage.Filter) (*domain.Student, error) {
	c.calls.Add(1)
	return c.Collection.FindOne(ctx, filter)
}

func (c *countingStudents) Count(ctx context.Context, filter storage.Filter) (int64, error) {
	c.calls.Add(1)
	return c.Collection.Count(ctx, filter)
}

func (c *countingStudents) Create(ctx context.Context, doc *domain.Student) (*domain.Student, error) {
	c.calls.Add(1)
	return c.Collection.Create(ctx, doc)
}

func (c *countingStudents) FindByIDAndUpdate(ctx context.Context, id string, set map[string]any) (*domain.Student, error) {
	c.calls.Add(1)
	return c.Collection.FindByIDAndUpdate(ctx, id, set)
}

func (c *countingStudents) FindOneAndDelete(ctx context.Context, filter storage.Filter) (*domain.Student, error) {
	c.calls.Add(1)
	return c.Collection.FindOneAndDelete(ctx, filter)
}

type testServer struct {
	handler  http.Handler
	metrics  *metric.Registry
	tokens   *service.TokenService
	students *countingStudents
}

func newTestServer(t *testing.T, production bool) *testServer {
	t.Helper()
	store := memory.New()
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: "router-secret"}, nil)
	require.NoError(t, err)
	reg := metric.NewRegistry()
	students := &countingStudents{Collection: store.Students()}

	resolver := graph.NewResolver(graph.Config{
		Students: service.NewStudentService(students, nil),
		Users:    service.NewUserService(store.Users(), tokens, nil),
		Metrics:  reg,
	}, nil)
	schema, err := graph.NewSchema(resolver)
	require.NoError(t, err)

	adm := admission.DefaultConfig()
	adm.FieldCosts = graph.DefaultFieldCosts
	gql := NewGraphQLHandler(GraphQLConfig{
		Schema:    schema,
		Admission: admission.New(schema, adm),
		Formatter: format.New(format.Config{Production: production}, nil),
		Metrics:   reg,
		Prepare:   resolver.WithLoaders,
	})

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		Policies: []ratelimit.Policy{
			ratelimit.GeneralPolicy(ratelimit.DefaultGeneralLimit, ratelimit.DefaultWindow),
			ratelimit.AuthPolicy(ratelimit.DefaultAuthLimit, ratelimit.DefaultWindow),
		},
		OnReject: reg.RateLimitRejected,
	}, nil)

	h := NewRouter(RouterConfig{
		GraphQL:            gql,
		Identity:           session.NewMiddleware(tokens, session.CookieConfigFor(production), reg.CredentialRejected),
		Limiter:            limiter,
		Store:              store,
		Metrics:            reg,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		BodyLimit:          1024,
		Version:            "test",
		MetricsEnabled:     true,
	})
	return &testServer{handler: h, metrics: reg, tokens: tokens, students: students}
}

func (s *testServer) post(t *testing.T, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, PathGraphQL, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func code(rec *httptest.ResponseRecorder) string {
	return gjson.Get(rec.Body.String(), "errors.0.extensions.code").String()
}

func TestRouter_Banner(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/graphql", gjson.Get(rec.Body.String(), "graphql").String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   string
		db     string
	}{
		{"ok", nil, http.StatusOK, "OK", "connected"},
		{"closed", storage.ErrClosed, http.StatusServiceUnavailable, "DEGRADED", "disconnected"},
		{"error", errors.New("boom"), http.StatusServiceUnavailable, "ERROR", "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler(pingFunc(func(context.Context) error { return tt.err }), 0).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathHealth, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, gjson.Get(rec.Body.String(), "status").String())
			assert.Equal(t, tt.db, gjson.Get(rec.Body.String(), "database").String())
		})
	}
}

func TestGraphQL_ServerTiming(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.post(t, `{"query":"{ me { id } }"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"me":null}}`, rec.Body.String())

	st := rec.Header().Get("Server-Timing")
	for _, phase := range []string{"parse;dur=", "admission;dur=", "execution;dur=", "total;dur="} {
		assert.Contains(t, st, phase)
	}
	assert.Equal(t, "100", rec.Header().Get("RateLimit-Limit"))
}

func TestGraphQL_GuardedOperation(t *testing.T) {
	s := newTestServer(t, true)
	rec := s.post(t, `{"query":"{ students { id } }"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CodeForbidden, code(rec))
	assert.Equal(t, "You are not authenticated as a user", gjson.Get(rec.Body.String(), "errors.0.message").String())
}

func TestGraphQL_InvalidCredential(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.post(t, `{"query":"{ me { id } }"}`, func(r *http.Request) {
		r.Header.Set(session.HeaderName, "garbage")
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.CodeUnauthenticated, code(rec))
	assert.False(t, gjson.Get(rec.Body.String(), "data").Exists())
}

func TestGraphQL_SignOut(t *testing.T) {
	s := newTestServer(t, false)
	signOut := `{"query":"mutation { signOut }"}`

	rec := s.post(t, signOut)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, gjson.Get(rec.Body.String(), "data.signOut").Bool())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)

	rec = s.post(t, signOut, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "stale"})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.CodeUnauthenticated, code(rec))
	assert.Empty(t, rec.Result().Cookies())
}

func TestGraphQL_SignUpThenCookie(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.post(t, `{"query":"mutation { signUp(email: \"a@school.org\", password: \"password1\") { token } }"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	rec = s.post(t, `{"query":"{ me { email } }"}`, func(r *http.Request) { r.AddCookie(cookies[0]) })
	assert.Equal(t, "a@school.org", gjson.Get(rec.Body.String(), "data.me.email").String())
}

func TestGraphQL_Rejections(t *testing.T) {
	s := newTestServer(t, false)
	deep := strings.Repeat("{ a ", 10) + strings.Repeat("} ", 10)
	wide := "{ students(limit: 100) { id fullName school studentId teacher gender race gradeLevel nativeLanguage cityOfBirth ellStatus } }"

	tests := []struct {
		name   string
		body   string
		status int
		code   string
		msg    string
	}{
		{"parse", `{"query":"{ students { "}`, http.StatusBadRequest, domain.CodeParseFailed, ""},
		{"validation", `{"query":"{ nope }"}`, http.StatusBadRequest, domain.CodeValidationFailed, ""},
		{"depth", `{"query":"` + deep + `"}`, http.StatusBadRequest, domain.CodeQueryTooComplex, "'anonymous' exceeds maximum operation depth of 7"},
		{"complexity", `{"query":"` + wide + `"}`, http.StatusBadRequest, domain.CodeQueryTooComplex, "Query is too complex: 1101. Maximum allowed: 1000"},
		{"empty", `{"query":"  "}`, http.StatusBadRequest, domain.CodeBadRequest, ""},
		{"bad json", `{"query":`, http.StatusBadRequest, domain.CodeBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.post(t, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, code(rec))
			if tt.msg != "" {
				assert.Equal(t, tt.msg, gjson.Get(rec.Body.String(), "errors.0.message").String())
			}
		})
	}
}

func (s *testServer) bearer(t *testing.T) func(*http.Request) {
	t.Helper()
	tok, err := s.tokens.Issue(domain.NewObjectID().Hex(), "teacher@school.org")
	require.NoError(t, err)
	return func(r *http.Request) { r.Header.Set(session.HeaderName, tok) }
}

func TestGraphQL_ComplexQueryNeverReachesStore(t *testing.T) {
	s := newTestServer(t, false)
	wide := "{ students(limit: 100) { id fullName school studentId teacher gender race gradeLevel nativeLanguage cityOfBirth ellStatus } }"

	rec := s.post(t, `{"query":"`+wide+`"}`, s.bearer(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, domain.CodeQueryTooComplex, code(rec))
	assert.Zero(t, s.students.calls.Load())

	rec = s.post(t, `{"query":"{ students(limit: 1) { id } }"}`, s.bearer(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Positive(t, s.students.calls.Load())
}

func TestGraphQL_ProductionKeepsNotFound(t *testing.T) {
	s := newTestServer(t, true)
	body := `{"query":"{ student(id: \"` + domain.NewObjectID().Hex() + `\") { id } }"}`

	rec := s.post(t, body, s.bearer(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.CodeNotFound, code(rec))
	assert.Equal(t, "Student not found", gjson.Get(rec.Body.String(), "errors.0.message").String())
}

func TestGraphQL_GET(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.get(t, PathGraphQL+"?query=%7B%20me%20%7B%20id%20%7D%20%7D")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"me":null}}`, rec.Body.String())

	rec = s.get(t, PathGraphQL+"?query=mutation%20%7B%20signOut%20%7D")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, domain.CodeMethodNotAllowed, code(rec))
}

func TestGraphQL_BodyLimit(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.post(t, `{"query":"{ me { id } }","pad":"`+strings.Repeat("x", 2048)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, domain.CodePayloadTooLarge, code(rec))
}

func TestGraphQL_AuthRateLimit(t *testing.T) {
	s := newTestServer(t, false)
	body := `{"query":"mutation { signIn(login: \"x@school.org\", password: \"password1\") { token } }"}`

	for i := 0; i < ratelimit.DefaultAuthLimit; i++ {
		rec := s.post(t, body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := s.post(t, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, domain.CodeRateLimited, code(rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRouter_MetricsExposed(t *testing.T) {
	s := newTestServer(t, false)
	s.post(t, `{"query":"{ me { id } }"}`)
	s.get(t, PathHealth)

	body := s.get(t, PathMetrics).Body.String()
	assert.Contains(t, body, `http_requests_total{method="POST",route="/graphql",status="200"} 1`)
	assert.NotContains(t, body, `route="/health"`)
	assert.Contains(t, body, `graphql_operations_total{outcome="ok",type="query"} 1`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodOptions, PathGraphQL, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecover(t *testing.T) {
	h := Recover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, domain.CodeInternalServer, code(rec))
}

func TestRequestID_ReusesClientValue(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc", seen)
}

func TestOperation(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.post(t, `{"query":"query A { me { id } } mutation B { signOut }","operationName":"B"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Get(rec.Body.String(), "data.signOut").Bool())
}
