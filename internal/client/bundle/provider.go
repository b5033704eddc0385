// Package bundle supplies the bundleVersion compatibility token the portal
// requires on every data call. The token is opaque and slowly changing; it
// can be pinned statically or detected from the portal's JavaScript bundles.
package bundle

import "context"

// FallbackVersion is the last known-good bundle version. Used when
// detection finds nothing better.
const FallbackVersion = "3505280ee7"

// Provider yields the current bundleVersion. Implementations must be safe
// for concurrent use; every session manager consults its provider on every
// data call.
type Provider interface {
	BundleVersion(ctx context.Context) (string, error)
}

// Static is a fixed, host-supplied bundle version.
type Static string

var _ Provider = Static("")

// BundleVersion returns the pinned version.
func (s Static) BundleVersion(_ context.Context) (string, error) {
	return string(s), nil
}
