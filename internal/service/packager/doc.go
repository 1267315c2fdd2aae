// Package packager prepares the channel manifest a release must carry.
//
// It computes the installer checksums and writes latest.yml or latest-mac.json
// in the format the resolver expects for the target platform. Both files are
// then uploaded as assets of the release.
package packager
