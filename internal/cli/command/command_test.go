package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/educationelly/educationelly-graphql/internal/core/service"
)

// run executes ellyctl with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := App()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"ellyctl"}, args...))
	return out.String(), err
}

func exitCode(err error) int {
	if ec, ok := err.(cli.ExitCoder); ok {
		return ec.ExitCode()
	}
	return -1
}

func graphqlServer(t *testing.T, respond func(query string, vars map[string]any, token string) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte(`{"status":"OK","database":"connected"}`))
			return
		}
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(req.Query, req.Variables, r.Header.Get("x-token"))))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestToken_IssueVerifyDecode(t *testing.T) {
	out, err := run(t, "token", "issue", "--secret", "s3cret", "--id", "u1", "--email", "a@school.org")
	require.NoError(t, err)
	tok := strings.TrimSpace(out)
	require.NotEmpty(t, tok)

	out, err = run(t, "-o", "json", "token", "verify", "--secret", "s3cret", tok)
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "a@school.org"`)

	_, err = run(t, "token", "verify", "--secret", "other", tok)
	assert.Equal(t, 1, exitCode(err))

	out, err = run(t, "token", "decode", tok)
	require.NoError(t, err)
	assert.Contains(t, out, "u1")
}

func TestToken_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ELLY_AUTH__JWT_SECRET", "")
	_, err := run(t, "token", "issue", "--id", "u1", "--email", "a@school.org")
	assert.Equal(t, 2, exitCode(err))
}

func TestToken_DecodeGarbage(t *testing.T) {
	_, err := run(t, "token", "decode", "garbage")
	assert.Equal(t, 1, exitCode(err))
}

func TestHealth(t *testing.T) {
	srv := graphqlServer(t, nil)
	out, err := run(t, "-s", srv.URL, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "connected")
}

func TestSignIn(t *testing.T) {
	srv := graphqlServer(t, func(query string, vars map[string]any, _ string) string {
		assert.Contains(t, query, "signIn")
		assert.Equal(t, "a@school.org", vars["login"])
		return `{"data":{"signIn":{"token":"tok-123"}}}`
	})
	out, err := run(t, "-s", srv.URL, "signin", "--login", "a@school.org", "--password", "password1")
	require.NoError(t, err)
	assert.Equal(t, "tok-123\n", out)
}

func TestStudents(t *testing.T) {
	srv := graphqlServer(t, func(_ string, vars map[string]any, token string) string {
		if token != "tok" {
			return `{"data":{"students":null},"errors":[{"message":"You are not authenticated as a user","extensions":{"code":"FORBIDDEN"}}]}`
		}
		assert.Equal(t, "North", vars["school"])
		return `{"data":{"students":[{"id":"1","fullName":"Ana Ruiz","school":"North","gradeLevel":"3","active":true}]}}`
	})

	out, err := run(t, "-s", srv.URL, "-t", "tok", "students", "--school", "North")
	require.NoError(t, err)
	assert.Contains(t, out, "FULL_NAME")
	assert.Contains(t, out, "Ana Ruiz")

	_, err = run(t, "-s", srv.URL, "students")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[FORBIDDEN]")
}

func TestQuery_Vars(t *testing.T) {
	srv := graphqlServer(t, func(_ string, vars map[string]any, _ string) string {
		assert.Equal(t, float64(3), vars["limit"])
		assert.Equal(t, "plain", vars["term"])
		return `{"data":{"studentCount":4}}`
	})
	out, err := run(t, "-s", srv.URL, "-o", "json", "query", "--var", "limit=3", "--var", "term=plain", "{ studentCount }")
	require.NoError(t, err)
	assert.JSONEq(t, `{"studentCount":4}`, out)
}

func TestParseVars_Invalid(t *testing.T) {
	_, err := parseVars([]string{"novalue"})
	assert.Equal(t, 2, exitCode(err))
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := run(t, "-o", "xml", "token", "decode", mustToken(t))
	assert.Equal(t, 2, exitCode(err))
}

func mustToken(t *testing.T) string {
	t.Helper()
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: "x"}, nil)
	require.NoError(t, err)
	tok, err := tokens.Issue("u1", "a@school.org")
	require.NoError(t, err)
	return tok
}
