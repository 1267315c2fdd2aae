// Package provider resolves the newest release of a private, token-gated
// repository into an update manifest and a downloadable artifact descriptor.
//
// A Provider locates the latest release, fetches and validates the channel
// manifest, and maps the manifest's primary artifact onto one release asset.
// All traffic goes through a shared isolated network context on which the
// provider keeps a rule that strips the token from requests to storage domains.
package provider
