// Package render produces the certificate artifact handed to a
// verified owner, and the deliberately incomplete preview shown before
// verification.
package render

import "context"

// Options describe one certificate rendering.
type Options struct {
	TokenID  int64
	Contract string
	// Owner is only stamped onto the image when Verified is true.
	Owner    string
	Verified bool
}

// Renderer renders a certificate image as PNG bytes.
type Renderer interface {
	Render(ctx context.Context, opts Options) ([]byte, error)
}
