// Package transport talks to the release host.
//
// It wraps a go-github client whose HTTP client attaches the access token on
// every hop through an oauth2 transport, and sends those hops through a
// netsession.Session so storage redirects never carry the token. Non-2xx
// answers surface as *HTTPError with the status code and request URL attached.
package transport
