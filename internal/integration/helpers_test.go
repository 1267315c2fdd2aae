package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/release-resolver/internal/config"
)

const (
	// testToken is the access token the fake release host expects.
	testToken = "secret-token"
	// storageHost is the storage domain the fake release host redirects to.
	storageHost = "bucket.s3.amazonaws.com"
)

// storage is a fake object store recording the credentials it receives.
type storage struct {
	// server serves the stored objects.
	server *httptest.Server
	// mu protects authorizations.
	mu sync.Mutex
	// authorizations holds the Authorization header of every request.
	authorizations []string
}

// newStorage starts a fake object store serving objects by path.
func newStorage(t *testing.T, objects map[string][]byte) *storage {
	t.Helper()

	s := new(storage)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.authorizations = append(s.authorizations, r.Header.Get("Authorization"))
		s.mu.Unlock()

		object, ok := objects[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write(object)
	}))
	t.Cleanup(s.server.Close)

	return s
}

// received returns the recorded Authorization headers.
func (s *storage) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.authorizations...)
}

// RoundTrip sends requests for the storage domain to the fake object store.
func (s *storage) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Hostname() != storageHost {
		return http.DefaultTransport.RoundTrip(req)
	}

	routed := req.Clone(req.Context())
	routed.URL.Scheme = "http"
	routed.URL.Host = strings.TrimPrefix(s.server.URL, "http://")
	routed.Host = routed.URL.Host

	return http.DefaultTransport.RoundTrip(routed)
}

// releaseAsset is the part of a release asset the fake host returns.
type releaseAsset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// newReleaseHost starts a fake release API for acme/app.
// Asset downloads redirect to the storage domain path named in redirects.
func newReleaseHost(t *testing.T, assets []string, redirects map[string]string) *httptest.Server {
	t.Helper()

	return newReleaseHostWithStatus(t, http.StatusOK, assets, redirects)
}

// newReleaseHostWithStatus is newReleaseHost with a custom status for the latest release lookup.
func newReleaseHostWithStatus(t *testing.T, status int, assets []string, redirects map[string]string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token "+testToken, r.Header.Get("Authorization"))

		const assetsPath = "/repos/acme/app/releases/assets/"

		switch {
		case r.URL.Path == "/repos/acme/app/releases/latest":
			if status != http.StatusOK {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"message": "Not Found"}`))

				return
			}

			listed := make([]releaseAsset, 0, len(assets))
			for _, name := range assets {
				listed = append(listed, releaseAsset{
					Name: name,
					URL:  "http://" + r.Host + assetsPath + url.PathEscape(name),
				})
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"tag_name": "v1.2.0",
				"assets":   listed,
			})
		case strings.HasPrefix(r.URL.Path, assetsPath):
			assert.Equal(t, "application/octet-stream", r.Header.Get("Accept"))

			target, ok := redirects[strings.TrimPrefix(r.URL.Path, assetsPath)]
			if !ok {
				http.NotFound(w, r)
				return
			}

			http.Redirect(w, r, "http://"+storageHost+target+"?X-Amz-Signature=abc", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	return server
}

// writeSettings writes a settings file pointing at the fake release host.
func writeSettings(t *testing.T, host *httptest.Server, platform string) string {
	t.Helper()

	cfg := config.Config{
		Owner:     "acme",
		Repo:      "app",
		Host:      strings.TrimPrefix(host.URL, "http://"),
		Protocol:  "http",
		Token:     testToken,
		Platform:  platform,
		Partition: t.Name(),
	}

	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, data, config.DefaultFilePermissions))

	return path
}
