package adapter

import "context"

// UploadTarget tells the client where to put a proof-of-payment image.
// When object storage is not configured, UseLocalFallback is set and the
// client writes to the local key instead; the degraded mode is explicit and
// logged, never a silent substitution.
type UploadTarget struct {
	SignedURL        string
	Key              string
	PublicURL        string
	UseLocalFallback bool
}

// ObjectStorage issues pre-signed upload slots for proof images.
type ObjectStorage interface {
	Configured() bool
	PresignUpload(ctx context.Context, key, contentType string) (UploadTarget, error)
}
