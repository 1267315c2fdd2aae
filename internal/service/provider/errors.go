package provider

import (
	"fmt"
)

// ReleaseNotFoundError means no published release could be found at the release host.
type ReleaseNotFoundError struct {
	// URL is the "latest release" request URL.
	URL string
	// Err is the transport failure.
	Err error
}

// Error implements the error interface.
func (e *ReleaseNotFoundError) Error() string {
	return fmt.Sprintf("unable to find latest version on the release host (%s), "+
		"please ensure a production release exists: %v", e.URL, e.Err)
}

// Unwrap returns the transport failure.
func (e *ReleaseNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestNotFoundError means the latest release lacks the channel manifest.
type ManifestNotFoundError struct {
	// Filename is the expected manifest asset name.
	Filename string
	// URL is the request URL that was resolved for the lookup.
	URL string
	// Err is the 404 answer when the asset existed in the list but could not be fetched.
	Err error
}

// Error implements the error interface.
func (e *ManifestNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot find %s in the latest release artifacts (%s): %v", e.Filename, e.URL, e.Err)
	}

	return fmt.Sprintf("cannot find %s in the latest release artifacts (%s)", e.Filename, e.URL)
}

// Unwrap returns the 404 answer, if any.
func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestValidationError means the fetched manifest could not be decoded or failed the schema.
type ManifestValidationError struct {
	// Filename is the manifest asset name.
	Filename string
	// URL is the manifest request URL.
	URL string
	// Err describes the violation.
	Err error
}

// Error implements the error interface.
func (e *ManifestValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%s): %v", e.Filename, e.URL, e.Err)
}

// Unwrap returns the violation.
func (e *ManifestValidationError) Unwrap() error {
	return e.Err
}

// AssetResolutionError is raised by a panic when a validated manifest references
// an asset absent from the asset list it was resolved against.
type AssetResolutionError struct {
	// Name is the asset name that could not be found.
	Name string
	// Version is the manifest version.
	Version string
}

// Error implements the error interface.
func (e *AssetResolutionError) Error() string {
	return fmt.Sprintf("manifest %s references asset %q missing from its release", e.Version, e.Name)
}
