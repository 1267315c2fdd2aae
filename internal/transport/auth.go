package transport

import (
	"net/http"
	"strings"
)

// hostScoped sends requests for host through auth and everything else through base,
// so redirects to hosts other than the release API never get the token attached.
type hostScoped struct {
	// host is the release API host with its port, if any.
	host string
	// auth attaches the token.
	auth http.RoundTripper
	// base sends requests unchanged.
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (h *hostScoped) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.EqualFold(req.URL.Host, h.host) {
		return h.auth.RoundTrip(req)
	}

	return h.base.RoundTrip(req)
}
