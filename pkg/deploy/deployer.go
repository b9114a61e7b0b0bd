// Package deploy sequences a full site deploy: bucket provisioning, the
// bounded-concurrency upload, and the edge cache invalidation. Stages are
// strictly ordered and each is gated on the prior stage's success; there
// is no rollback and no retry.
package deploy

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// BucketProvisioner ensures a website bucket exists and is configured.
type BucketProvisioner interface {
	Ensure(ctx context.Context, name string) error
}

// SiteUploader uploads a local directory tree to a bucket.
type SiteUploader interface {
	Preflight(ctx context.Context, bucket string) error
	UploadDir(ctx context.Context, bucket, localDir string) ([]string, error)
}

// CacheInvalidator purges cached paths for a site's distribution.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, site string, paths []string) error
}

// Options configures the deployer.
type Options struct {
	// Preflight writes a probe object to the bucket before uploading any
	// site file, failing fast on misconfigured credentials.
	Preflight bool
}

// Deployer runs one deploy end to end.
type Deployer struct {
	log         logrus.FieldLogger
	provisioner BucketProvisioner
	uploader    SiteUploader
	invalidator CacheInvalidator
	preflight   bool
}

// New creates a deployer from its collaborators.
func New(
	log logrus.FieldLogger,
	provisioner BucketProvisioner,
	uploader SiteUploader,
	invalidator CacheInvalidator,
	opts *Options,
) *Deployer {
	return &Deployer{
		log:         log.WithField("component", "deployer"),
		provisioner: provisioner,
		uploader:    uploader,
		invalidator: invalidator,
		preflight:   opts != nil && opts.Preflight,
	}
}

// Run deploys localDir to the given site. The site identifier is used as
// both the bucket name and the distribution alias. Any stage failure is
// returned unchanged; completed stages are not rolled back.
func (d *Deployer) Run(ctx context.Context, site, localDir string) error {
	d.log.WithFields(logrus.Fields{
		"site": site,
		"dir":  localDir,
	}).Info("Starting deploy")

	if err := d.provisioner.Ensure(ctx, site); err != nil {
		return fmt.Errorf("provisioning bucket %s: %w", site, err)
	}

	if d.preflight {
		if err := d.uploader.Preflight(ctx, site); err != nil {
			return fmt.Errorf("upload preflight: %w", err)
		}
	}

	uploaded, err := d.uploader.UploadDir(ctx, site, localDir)
	if err != nil {
		return fmt.Errorf("uploading site files: %w", err)
	}

	// Successful uploads never yield an empty path, but filter them out
	// rather than submitting a bogus invalidation entry.
	paths := make([]string, 0, len(uploaded))

	for _, p := range uploaded {
		if p == "" {
			continue
		}

		paths = append(paths, "/"+p)
	}

	if err := d.invalidator.Invalidate(ctx, site, paths); err != nil {
		return fmt.Errorf("invalidating cache for %s: %w", site, err)
	}

	d.log.WithField("files", len(paths)).Info("Upload done.")

	return nil
}
