package upload

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// preflightKey is the object key used for write probes.
const preflightKey = ".deployoor-write-test"

// PutObjectAPI defines the subset of the S3 API used for uploading files.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Compile-time check: *s3.Client satisfies the narrow interface.
var _ PutObjectAPI = (*s3.Client)(nil)

// Options configures the S3 uploader.
type Options struct {
	// Concurrency limits the number of in-flight uploads. This bounds open
	// connections and the memory held by in-flight file contents.
	Concurrency int

	// RateLimit caps PutObject calls per second. Zero means unlimited.
	RateLimit float64
}

// s3Uploader implements Uploader for S3-compatible storage.
type s3Uploader struct {
	log         logrus.FieldLogger
	client      PutObjectAPI
	concurrency int
	limiter     *rate.Limiter
}

// Ensure interface compliance.
var _ Uploader = (*s3Uploader)(nil)

// NewS3Uploader creates a new S3 uploader using the given client.
func NewS3Uploader(
	log logrus.FieldLogger,
	client PutObjectAPI,
	opts *Options,
) Uploader {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), concurrency)
	}

	return &s3Uploader{
		log:         log.WithField("component", "s3-uploader"),
		client:      client,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// Preflight verifies S3 connectivity by writing a small test object.
func (u *s3Uploader) Preflight(ctx context.Context, bucket string) error {
	content := fmt.Sprintf("deployoor write test: %s", time.Now().UTC().Format(time.RFC3339))
	body := strings.NewReader(content)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(preflightKey),
		Body:        body,
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", bucket, err)
	}

	return nil
}

// UploadDir lists all files under localDir and uploads them concurrently.
// The fan-out is bounded by the configured concurrency, and the barrier is
// all-or-fail: the first upload error fails the whole batch after letting
// already-started uploads settle.
func (u *s3Uploader) UploadDir(
	ctx context.Context, bucket, localDir string,
) ([]string, error) {
	files, err := ListFiles(localDir)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	if len(files) == 0 {
		u.log.WithField("dir", localDir).Warn("No files found to upload")

		return nil, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	uploaded := make([]string, len(files))

	for i, relPath := range files {
		g.Go(func() error {
			uf, err := u.uploadFile(gCtx, bucket, localDir, relPath)
			if err != nil {
				return fmt.Errorf("uploading %s: %w", relPath, err)
			}

			uploaded[i] = uf.RelativePath

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	u.log.WithFields(logrus.Fields{
		"files":  len(files),
		"bucket": bucket,
	}).Info("Upload completed")

	return uploaded, nil
}

// uploadFile uploads a single file to S3 with public-read visibility.
func (u *s3Uploader) uploadFile(
	ctx context.Context, bucket, root, relPath string,
) (UploadedFile, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relPath)))
	if err != nil {
		return UploadedFile{}, fmt.Errorf("reading file: %w", err)
	}

	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return UploadedFile{}, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	contentType := detectContentType(relPath)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(relPath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return UploadedFile{}, fmt.Errorf("PutObject: %w", err)
	}

	u.log.WithFields(logrus.Fields{
		"key":    relPath,
		"bucket": bucket,
	}).Info("Uploaded file")

	return UploadedFile{
		RelativePath: relPath,
		ContentType:  contentType,
	}, nil
}

// detectContentType returns a MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "application/octet-stream"
	}

	return ct
}
