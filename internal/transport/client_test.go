package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-resolver/internal/domain/release"
	"github.com/oshokin/release-resolver/internal/netsession"
)

// newTestClient builds a client pointed at the provided test server.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	client, err := New(Options{
		BaseURL: serverURL,
		Token:   "T",
		Session: netsession.FromPartition(t.Name()),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	return client
}

// TestNew_Validates rejects missing session or token.
func TestNew_Validates(t *testing.T) {
	t.Parallel()

	_, err := New(Options{BaseURL: "https://api.github.com", Token: "T"})
	require.ErrorIs(t, err, errSessionRequired)

	_, err = New(Options{BaseURL: "https://api.github.com", Session: netsession.FromPartition(t.Name())})
	require.ErrorIs(t, err, errTokenRequired)
}

// TestClient_LatestRelease checks the request shape and the asset mapping.
func TestClient_LatestRelease(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/app/releases/latest", r.URL.Path)
		assert.Equal(t, "token T", r.Header.Get("Authorization"))
		assert.Equal(t, AcceptAPI, r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tag_name": "v1.2.0",
			"assets": [
				{"id": 1, "name": "latest.yml", "url": "https://api.github.com/repos/acme/app/releases/assets/1"},
				{"id": 42, "name": "MyApp-1.2.0.exe", "url": "https://api.github.com/repos/acme/app/releases/assets/42"}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	assets, err := client.LatestRelease(context.Background(), "acme", "app")
	require.NoError(t, err)
	require.Equal(t, []release.Asset{
		{Name: "latest.yml", URL: "https://api.github.com/repos/acme/app/releases/assets/1"},
		{Name: "MyApp-1.2.0.exe", URL: "https://api.github.com/repos/acme/app/releases/assets/42"},
	}, assets)
	require.Equal(t, server.URL+"/repos/acme/app/releases/latest", client.LatestReleaseURL("acme", "app"))
}

// TestClient_LatestRelease_NotFound surfaces a 404 as HTTPError with the request URL.
func TestClient_LatestRelease_NotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.LatestRelease(context.Background(), "acme", "app")
	require.Error(t, err)
	require.True(t, IsNotFound(err))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, server.URL+"/repos/acme/app/releases/latest", httpErr.URL)
	require.Contains(t, err.Error(), "404")
}

// TestClient_RateLimited keeps the 403 status of rate limit answers.
func TestClient_RateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "API rate limit exceeded"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.LatestRelease(context.Background(), "acme", "app")
	require.Equal(t, http.StatusForbidden, StatusCode(err))
}

// TestClient_Download sends the binary Accept header and returns the raw body.
func TestClient_Download(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AcceptBinary, r.Header.Get("Accept"))
		assert.Equal(t, "token T", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("version: 1.2.0\n"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	body, err := client.Download(context.Background(), server.URL+"/repos/acme/app/releases/assets/1", AcceptBinary)
	require.NoError(t, err)
	require.Equal(t, "version: 1.2.0\n", string(body))
}

// TestClient_Download_Canceled stops waiting when the context is canceled.
func TestClient_Download_Canceled(t *testing.T) {
	t.Parallel()

	unblock := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-unblock:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(unblock)

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := client.Download(ctx, server.URL+"/repos/acme/app/releases/assets/1", AcceptBinary)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, StatusCode(err))
}

// TestClient_Download_TokenStaysOnAPIHost drops the token when a redirect leaves the release API.
func TestClient_Download_TokenStaysOnAPIHost(t *testing.T) {
	t.Parallel()

	authorizations := make(chan string, 1)
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorizations <- r.Header.Get("Authorization")

		_, _ = w.Write([]byte("version: 1.2.0\n"))
	}))
	defer mirror.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token T", r.Header.Get("Authorization"))

		http.Redirect(w, r, mirror.URL+"/latest.yml", http.StatusFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	body, err := client.Download(context.Background(), server.URL+"/repos/acme/app/releases/assets/1", AcceptBinary)
	require.NoError(t, err)
	require.Equal(t, "version: 1.2.0\n", string(body))
	require.Empty(t, <-authorizations)
}
