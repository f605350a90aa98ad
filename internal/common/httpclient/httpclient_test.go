package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			assert.Equal(t, "1.2.3", r.URL.Query().Get("client"))
			w.Write([]byte(`{"apiVersion":"v1"}`))
		case "/api/compileSpec":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"result":0,"error":"compiler exited with status 1","kind":"CompilerInvocationError","detail":"Traceback"}`))
		case "/api/plain":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/")
	ctx := context.Background()

	body, err := c.Get(ctx, "version", map[string]string{"client": "1.2.3"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"apiVersion":"v1"}`, string(body))

	_, err = c.Get(ctx, "compileSpec", nil)
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusBadGateway, herr.StatusCode)
	assert.Equal(t, "CompilerInvocationError", herr.Kind)
	assert.Equal(t, "Traceback", herr.Detail)
	assert.Equal(t, "CompilerInvocationError: compiler exited with status 1", herr.Error())

	_, err = c.Get(ctx, "plain", nil)
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "boom", herr.Message)

	_, err = c.Get(ctx, "missing", nil)
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "server doesn't implement this endpoint", herr.Message)
}

func TestDoRequestUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.Get(context.Background(), "version", nil)
	require.Error(t, err)
	var herr *HTTPError
	assert.False(t, errors.As(err, &herr))
}
