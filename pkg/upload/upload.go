package upload

import "context"

// UploadedFile describes one successfully uploaded object.
type UploadedFile struct {
	// RelativePath is the file's slash-separated path relative to the
	// upload root. It is also the object key in the bucket.
	RelativePath string

	// ContentType is the MIME type resolved from the file extension.
	ContentType string
}

// Uploader uploads a local site directory to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context, bucket string) error

	// UploadDir uploads all files under localDir to the bucket with bounded
	// concurrency, keyed by their path relative to localDir. It waits for
	// every upload to settle and returns the relative paths of the uploaded
	// files, or the first upload failure.
	UploadDir(ctx context.Context, bucket, localDir string) ([]string, error)
}
