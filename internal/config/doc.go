// Package config defines the release host settings used by the resolver and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type names the repository (owner/repo), the API host and protocol,
// the update channel and the storage domains the access token must never reach.
package config
