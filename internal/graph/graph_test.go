package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educationelly/educationelly-graphql/internal/core/domain"
	"github.com/educationelly/educationelly-graphql/internal/core/service"
	"github.com/educationelly/educationelly-graphql/internal/gateway/format"
	"github.com/educationelly/educationelly-graphql/internal/gateway/session"
	"github.com/educationelly/educationelly-graphql/internal/storage/memory"
	"github.com/educationelly/educationelly-graphql/internal/telemetry/metric"
)

type harness struct {
	schema   graphql.Schema
	resolver *Resolver
	metrics  *metric.Registry
	tokens   *service.TokenService
	students *service.StudentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: "graph-test-secret"}, nil)
	require.NoError(t, err)

	reg := metric.NewRegistry()
	students := service.NewStudentService(store.Students(), nil)
	r := NewResolver(Config{
		Students: students,
		Users:    service.NewUserService(store.Users(), tokens, nil),
		Metrics:  reg,
	}, nil)
	schema, err := NewSchema(r)
	require.NoError(t, err)
	return &harness{schema: schema, resolver: r, metrics: reg, tokens: tokens, students: students}
}

func (h *harness) do(t *testing.T, me *domain.Identity, query string, vars map[string]any) (*graphql.Result, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	ctx := session.WithSession(context.Background(), session.New(rec, me, session.CookieConfigFor(false)))
	ctx = h.resolver.WithLoaders(ctx)
	res := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        ctx,
	})
	return res, rec
}

func (h *harness) batches(t *testing.T) (count uint64, keys float64) {
	t.Helper()
	mfs, err := h.metrics.Gatherer().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "graphql_loader_batch_size" {
			hist := mf.GetMetric()[0].GetHistogram()
			return hist.GetSampleCount(), hist.GetSampleSum()
		}
	}
	return 0, 0
}

var teacher = &domain.Identity{ID: domain.NewObjectID().Hex(), Email: "t@school.org"}

func errCode(t *testing.T, res *graphql.Result) string {
	t.Helper()
	require.NotEmpty(t, res.Errors)
	e := format.New(format.Config{}, nil).FormatOne(context.Background(), res.Errors[0], "")
	code, _ := e.Extensions["code"].(string)
	return code
}

func (h *harness) create(t *testing.T, name string) string {
	t.Helper()
	st, err := h.students.Create(context.Background(), service.StudentInput{FullName: &name})
	require.NoError(t, err)
	return st.ID.Hex()
}

func TestMe_Anonymous(t *testing.T) {
	h := newHarness(t)
	res, _ := h.do(t, nil, `{ me { id email } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"me": nil}, res.Data)
}

func TestGuard_RejectsAnonymous(t *testing.T) {
	h := newHarness(t)
	for _, q := range []string{
		`{ students { id } }`,
		`{ searchStudents(term: "a") { id } }`,
		`mutation { createStudent(input: {fullName: "A"}) { id } }`,
	} {
		res, _ := h.do(t, nil, q, nil)
		assert.Equal(t, "FORBIDDEN", errCode(t, res), q)
		assert.Equal(t, "You are not authenticated as a user", res.Errors[0].Message)
	}
}

func TestSignUp_SetsCookieAndMeResolves(t *testing.T) {
	h := newHarness(t)

	res, rec := h.do(t, nil, `mutation { signUp(email: "new@school.org", password: "password1") { token } }`, nil)
	require.Empty(t, res.Errors)
	tok := res.Data.(map[string]any)["signUp"].(map[string]any)["token"].(string)

	cookies := (&http.Response{Header: rec.Header()}).Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.Equal(t, tok, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	me, err := h.tokens.Verify(tok)
	require.NoError(t, err)

	res, _ = h.do(t, me, `{ me { id email } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"id": me.ID, "email": "new@school.org"}, res.Data.(map[string]any)["me"])
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	h := newHarness(t)
	res, rec := h.do(t, nil, `mutation { signIn(login: "ghost@school.org", password: "password1") { token } }`, nil)
	assert.Equal(t, "You have entered invalid login credentials", res.Errors[0].Message)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestSignOut_ClearsCookie(t *testing.T) {
	h := newHarness(t)
	res, rec := h.do(t, nil, `mutation { signOut }`, nil)
	require.Empty(t, res.Errors)
	cookies := (&http.Response{Header: rec.Header()}).Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestStudent_LookupsAreBatched(t *testing.T) {
	h := newHarness(t)
	a := h.create(t, "Ana Lopez")
	b := h.create(t, "Bo Chen")

	res, _ := h.do(t, teacher, `query($a: ID!, $b: ID!) {
		first: student(id: $a) { fullName }
		second: student(id: $b) { fullName }
		again: student(id: $a) { id }
	}`, map[string]any{"a": a, "b": b})
	require.Empty(t, res.Errors)

	data := res.Data.(map[string]any)
	assert.Equal(t, "Ana Lopez", data["first"].(map[string]any)["fullName"])
	assert.Equal(t, "Bo Chen", data["second"].(map[string]any)["fullName"])
	assert.Equal(t, a, data["again"].(map[string]any)["id"])

	count, keys := h.batches(t)
	assert.EqualValues(t, 1, count)
	assert.EqualValues(t, 2, keys)
}

func TestStudent_UppercaseIDSharesLoaderEntry(t *testing.T) {
	h := newHarness(t)
	a := h.create(t, "Ana Lopez")
	upper := strings.ToUpper(a)

	res, _ := h.do(t, teacher, `query($a: ID!, $u: ID!) {
		lower: student(id: $a) { fullName }
		upper: student(id: $u) { fullName }
	}`, map[string]any{"a": a, "u": upper})
	require.Empty(t, res.Errors)

	data := res.Data.(map[string]any)
	assert.Equal(t, "Ana Lopez", data["upper"].(map[string]any)["fullName"])

	count, keys := h.batches(t)
	assert.EqualValues(t, 1, count)
	assert.EqualValues(t, 1, keys)
}

func TestStudent_Errors(t *testing.T) {
	h := newHarness(t)

	res, _ := h.do(t, teacher, `{ student(id: "nope") { id } }`, nil)
	assert.Equal(t, "Invalid student ID format", res.Errors[0].Message)
	assert.Equal(t, "BAD_USER_INPUT", errCode(t, res))

	res, _ = h.do(t, teacher, `query($id: ID!) { student(id: $id) { id } }`,
		map[string]any{"id": domain.NewObjectID().Hex()})
	assert.Equal(t, "Student not found", res.Errors[0].Message)
	assert.Equal(t, "NOT_FOUND", errCode(t, res))
}

func TestStudents_ListSearchCount(t *testing.T) {
	h := newHarness(t)
	h.create(t, "Ana Lopez")
	h.create(t, "Ana Maria Silva")
	h.create(t, "Bo Chen")

	res, _ := h.do(t, teacher, `{
		students(limit: 2) { fullName }
		searchStudents(term: "ana") { fullName }
		studentCount
	}`, nil)
	require.Empty(t, res.Errors)

	data := res.Data.(map[string]any)
	assert.Len(t, data["students"], 2)
	assert.Len(t, data["searchStudents"], 2)
	assert.Equal(t, 3, data["studentCount"])
}

func TestCreateAndUpdateStudent(t *testing.T) {
	h := newHarness(t)

	res, _ := h.do(t, teacher, `mutation {
		createStudent(input: {fullName: "  Ana Lopez ", gradeLevel: "3", dateOfBirth: "2015-04-02"}) {
			id fullName gradeLevel active dateOfBirth
		}
	}`, nil)
	require.Empty(t, res.Errors)
	created := res.Data.(map[string]any)["createStudent"].(map[string]any)
	assert.Equal(t, "Ana Lopez", created["fullName"])
	assert.Equal(t, true, created["active"])
	assert.Equal(t, "2015-04-02T00:00:00Z", created["dateOfBirth"])

	res, _ = h.do(t, teacher, `mutation($id: ID!) {
		updateStudent(id: $id, input: {school: "Lincoln"}) { school fullName }
		toggleStudentActive(id: $id) { active }
	}`, map[string]any{"id": created["id"]})
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)
	assert.Equal(t, "Lincoln", data["updateStudent"].(map[string]any)["school"])
	assert.Equal(t, false, data["toggleStudentActive"].(map[string]any)["active"])

	res, _ = h.do(t, teacher, `mutation($id: ID!) { deleteStudent(id: $id) }`, map[string]any{"id": created["id"]})
	require.Empty(t, res.Errors)
	assert.Equal(t, true, res.Data.(map[string]any)["deleteStudent"])
}

func TestCreateStudent_ValidationErrors(t *testing.T) {
	h := newHarness(t)

	res, _ := h.do(t, teacher, `mutation { createStudent(input: {fullName: ""}) { id } }`, nil)
	assert.Equal(t, "BAD_USER_INPUT", errCode(t, res))
	assert.Contains(t, res.Errors[0].Message, "Full name is required")

	res, _ = h.do(t, teacher, `mutation { createStudent(input: {fullName: "A", dateOfBirth: "someday"}) { id } }`, nil)
	assert.Equal(t, ErrInvalidDateOfBirth.Message, res.Errors[0].Message)
}

func TestStudentInput_NullsStayUnset(t *testing.T) {
	in, err := studentInput(map[string]any{"fullName": "A", "school": nil, "active": false})
	require.NoError(t, err)
	require.NotNil(t, in.FullName)
	assert.Nil(t, in.School)
	require.NotNil(t, in.Active)
	assert.False(t, *in.Active)
}
