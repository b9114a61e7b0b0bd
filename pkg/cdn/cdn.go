// Package cdn resolves and invalidates the CloudFront distribution serving
// a site. One site name maps to exactly one bucket and one distribution
// alias; resolution creates the distribution lazily when no match exists.
package cdn

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
)

// API defines the subset of the CloudFront API used by this package.
type API interface {
	ListDistributions(ctx context.Context, params *cloudfront.ListDistributionsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
	CreateDistribution(ctx context.Context, params *cloudfront.CreateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateDistributionOutput, error)
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// Compile-time check: *cloudfront.Client satisfies the narrow interface.
var _ API = (*cloudfront.Client)(nil)

// DistributionResolver maps a host alias to a distribution id, creating
// the distribution when none exists.
type DistributionResolver interface {
	Resolve(ctx context.Context, alias string) (string, error)
}

var callerRefSeq atomic.Int64

// callerReference returns an idempotency token unique per call, as required
// by the CreateDistribution and CreateInvalidation APIs. The counter keeps
// references unique even within one clock tick.
func callerReference() string {
	return fmt.Sprintf("deployoor-%d-%d", time.Now().UnixNano(), callerRefSeq.Add(1))
}
