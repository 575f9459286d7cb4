package engine_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
)

// TestHTTPFetcher_Fetch_Success checks headers (User-Agent, Accept, Basic Auth) and body integrity.
func TestHTTPFetcher_Fetch_Success(t *testing.T) {
	expectedBody := "BEGIN:VCARD\nVERSION:3.0\nFN:Test\nEND:VCARD"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "Basic auth header should be present")
		assert.Equal(t, "testuser", user)
		assert.Equal(t, "securepass", pass)
		assert.Equal(t, config.UserAgent, r.Header.Get(config.HeaderUserAgent))
		assert.Equal(t, config.AcceptVCard, r.Header.Get(config.HeaderAccept))

		_, _ = w.Write([]byte(expectedBody))
	}))
	defer ts.Close()

	rc, err := engine.NewHTTPFetcher().Fetch(context.Background(), engine.RemoteSource{URL: ts.URL, User: "testuser", Password: "securepass"})
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, expectedBody, string(body))
}

func TestHTTPFetcher_Fetch_NoAuthWhenEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
	}))
	defer ts.Close()

	rc, err := engine.NewHTTPFetcher().Fetch(context.Background(), engine.RemoteSource{URL: ts.URL})
	require.NoError(t, err)
	_ = rc.Close()
}

// TestHTTPFetcher_Fetch_Errors verifies proper error handling for non-200 statuses.
func TestHTTPFetcher_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    string
	}{
		{"NotModified", http.StatusNotModified, "304"},
		{"NotFound", http.StatusNotFound, "404"},
		{"ServerError", http.StatusInternalServerError, "500"},
		{"Unauthorized", http.StatusUnauthorized, "401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer ts.Close()

			rc, err := engine.NewHTTPFetcher().Fetch(context.Background(), engine.RemoteSource{URL: ts.URL})

			require.Error(t, err)
			assert.Nil(t, rc)
			assert.Contains(t, err.Error(), config.ErrFetchStatus)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestHTTPFetcher_Fetch_Timeout ensures the client respects context deadlines.
func TestHTTPFetcher_Fetch_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := engine.NewHTTPFetcher().Fetch(ctx, engine.RemoteSource{URL: ts.URL})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPFetcher_Fetch_RejectsBadURLs(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"ControlCharacter", string([]byte{0x7f}), config.ErrInvalidURL},
		{"FTP", "ftp://example.com/file.vcf", config.ErrProtocol},
		{"File", "file:///etc/passwd", config.ErrProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.NewHTTPFetcher().Fetch(context.Background(), engine.RemoteSource{URL: tt.url})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPFetcher_Fetch_AcceptsAny2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		_, _ = w.Write([]byte("BEGIN:VCARD"))
	}))
	defer ts.Close()

	rc, err := engine.NewHTTPFetcher().Fetch(context.Background(), engine.RemoteSource{URL: ts.URL})
	require.NoError(t, err)
	_ = rc.Close()
}

func TestHTTPFetcher_Fetch_SizeLimit(t *testing.T) {
	const limit = 64

	tests := []struct {
		name     string
		size     int
		chunked  bool
		wantOpen error
		wantRead error
	}{
		{"Exactly At Limit", limit, true, nil, nil},
		{"Declared Too Large", limit + 1, false, engine.ErrTooLarge, nil},
		{"Streamed Too Large", limit * 4, true, nil, engine.ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body := strings.Repeat("x", tt.size)
				if tt.chunked {
					// Flushing before writing hides the length from the client.
					w.(http.Flusher).Flush()
				} else {
					w.Header().Set("Content-Length", strconv.Itoa(len(body)))
				}
				_, _ = w.Write([]byte(body))
			}))
			defer ts.Close()

			f := engine.NewHTTPFetcher()
			f.MaxBytes = limit

			rc, err := f.Fetch(context.Background(), engine.RemoteSource{URL: ts.URL})
			if tt.wantOpen != nil {
				assert.ErrorIs(t, err, tt.wantOpen)
				return
			}
			require.NoError(t, err)
			defer func() { _ = rc.Close() }()

			data, err := io.ReadAll(rc)
			if tt.wantRead != nil {
				assert.ErrorIs(t, err, tt.wantRead)
				return
			}
			require.NoError(t, err)
			assert.Len(t, data, tt.size)
		})
	}
}
