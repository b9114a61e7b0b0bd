// Package bucket ensures the site's S3 bucket exists and is configured
// for static website hosting.
package bucket

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// API defines the subset of the S3 API used for bucket provisioning.
type API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketWebsite(ctx context.Context, params *s3.PutBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error)
}

// Compile-time check: *s3.Client satisfies the narrow interface.
var _ API = (*s3.Client)(nil)

// Options configures the bucket provisioner.
type Options struct {
	// Region the bucket is created in. Outside us-east-1 a location
	// constraint must be sent with the create call.
	Region string

	// IndexDocument is the website index document name.
	IndexDocument string

	// ErrorDocument is the website error document name.
	ErrorDocument string
}

// Provisioner creates and configures website buckets.
type Provisioner struct {
	log    logrus.FieldLogger
	client API
	opts   *Options
}

// NewProvisioner creates a new bucket provisioner using the given client.
func NewProvisioner(log logrus.FieldLogger, client API, opts *Options) *Provisioner {
	return &Provisioner{
		log:    log.WithField("component", "bucket-provisioner"),
		client: client,
		opts:   opts,
	}
}

// Ensure creates the bucket if it does not exist and configures it for
// static website hosting. A bucket that already exists and is owned by the
// caller is treated as success; any other creation failure is returned.
func (p *Provisioner) Ensure(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(name),
	}

	if p.opts.Region != "" && p.opts.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(p.opts.Region),
		}
	}

	_, err := p.client.CreateBucket(ctx, input)

	switch {
	case err == nil:
		p.log.WithField("bucket", name).Info("Created bucket")
	case isAlreadyOwned(err):
		p.log.WithField("bucket", name).Debug("Bucket already exists and is owned by us")
	default:
		return fmt.Errorf("creating bucket %s: %w", name, err)
	}

	_, err = p.client.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
		Bucket: aws.String(name),
		WebsiteConfiguration: &s3types.WebsiteConfiguration{
			IndexDocument: &s3types.IndexDocument{
				Suffix: aws.String(p.opts.IndexDocument),
			},
			ErrorDocument: &s3types.ErrorDocument{
				Key: aws.String(p.opts.ErrorDocument),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("configuring website hosting on %s: %w", name, err)
	}

	p.log.WithFields(logrus.Fields{
		"bucket": name,
		"index":  p.opts.IndexDocument,
		"error":  p.opts.ErrorDocument,
	}).Info("Configured website hosting")

	return nil
}

// isAlreadyOwned returns true if the error indicates the bucket already
// exists and is owned by the caller.
func isAlreadyOwned(err error) bool {
	var owned *s3types.BucketAlreadyOwnedByYou

	return errors.As(err, &owned)
}
