// Package release holds the value types exchanged while resolving an update:
// release assets, the validated update manifest and the artifact descriptor
// handed to the downloader.
package release
