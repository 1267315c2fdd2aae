// Package manifest turns the bytes of a channel manifest into a validated
// release.Manifest.
//
// The Platform strategy is picked once and decides the manifest file name,
// its format (JSON on darwin, YAML elsewhere), whether the manifest refers to
// itself by URL, and how the primary artifact is named among release assets.
package manifest
