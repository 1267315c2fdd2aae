// Package netsession provides isolated network contexts for release traffic.
//
// A Session is a process-wide http.RoundTripper keyed by a partition name.
// Header removal rules registered on a session apply to every request that
// goes through it, including the hops an http.Client makes while following
// redirects, so a token attached for the release host never reaches the
// storage domain the host redirects to.
package netsession
