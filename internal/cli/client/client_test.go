package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AddsScheme(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", New("localhost:8000/", "").BaseURL())
	assert.Equal(t, "https://api.example.org", New("https://api.example.org", "").BaseURL())
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("x-token"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "{ me { email } }", body["query"])

		w.Header().Set("Server-Timing", "total;dur=1.00")
		_, _ = w.Write([]byte(`{"data":{"me":{"email":"a@school.org"}}}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "tok").Query(context.Background(), "{ me { email } }", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Err())
	assert.Equal(t, "a@school.org", resp.Get("me.email").String())
	assert.Equal(t, "total;dur=1.00", resp.Timing)
}

func TestQuery_GraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":[{"message":"slow down","extensions":{"code":"RATE_LIMITED"}}]}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "").Query(context.Background(), "{ me { id } }", nil)
	require.NoError(t, err)

	var gqlErr *Error
	require.ErrorAs(t, resp.Err(), &gqlErr)
	assert.Equal(t, http.StatusTooManyRequests, gqlErr.Status)
	assert.Equal(t, "[RATE_LIMITED] slow down", gqlErr.Error())
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"DEGRADED","database":"disconnected"}`))
	}))
	defer srv.Close()

	h, err := New(srv.URL, "").Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "DEGRADED", h.Status)
}
