package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "neuraldocs/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher()
	body, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, string(body), "hello")
}

func TestFetcher_Fetch_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestFetcher_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewFetcher(WithTimeout(50 * time.Millisecond))
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
}

func TestFetcher_Fetch_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 1024)))
	}))
	defer srv.Close()

	f := NewFetcher(WithMaxBodyBytes(100))
	body, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Len(t, body, 100)
}

func TestFetcher_Fetch_InvalidURL(t *testing.T) {
	f := NewFetcher()
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable")

	require.Error(t, err)
}
