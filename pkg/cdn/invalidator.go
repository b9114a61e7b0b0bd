package cdn

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/sirupsen/logrus"
)

// Invalidator purges cached paths from a site's distribution.
type Invalidator struct {
	log      logrus.FieldLogger
	client   API
	resolver DistributionResolver
}

// NewInvalidator creates a new cache invalidator using the given client
// and resolver.
func NewInvalidator(
	log logrus.FieldLogger,
	client API,
	resolver DistributionResolver,
) *Invalidator {
	return &Invalidator{
		log:      log.WithField("component", "cdn-invalidator"),
		client:   client,
		resolver: resolver,
	}
}

// Invalidate submits one invalidation naming every given path on the
// distribution aliased to site. Each path is normalized to carry a leading
// slash. The call returns once the request is accepted; invalidation
// completion is not awaited.
func (i *Invalidator) Invalidate(ctx context.Context, site string, paths []string) error {
	if len(paths) == 0 {
		i.log.WithField("alias", site).Debug("No paths to invalidate")

		return nil
	}

	id, err := i.resolver.Resolve(ctx, site)
	if err != nil {
		return fmt.Errorf("resolving distribution for %s: %w", site, err)
	}

	if id == "" {
		// Resolution creates missing distributions, so this should not
		// happen. Treat it as a no-op rather than failing the deploy.
		i.log.WithField("alias", site).Warn("No distribution found, skipping invalidation")

		return nil
	}

	items := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}

		items = append(items, p)
	}

	_, err = i.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(id),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(callerReference()),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(int32(len(items))),
				Items:    items,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating invalidation for distribution %s: %w", id, err)
	}

	i.log.WithFields(logrus.Fields{
		"distribution": id,
		"paths":        len(items),
	}).Info("Invalidation submitted")

	return nil
}
