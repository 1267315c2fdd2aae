// Package version exposes the build metadata of release-resolver.
//
// Version, Commit and BuildTime are injected with -ldflags -X at build time.
// UserAgent identifies the resolver to the release host.
package version
