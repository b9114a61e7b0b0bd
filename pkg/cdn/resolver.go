package cdn

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/sirupsen/logrus"
)

// Options configures the distribution resolver.
type Options struct {
	// Region of the site bucket, used to derive the website endpoint the
	// distribution origin points at.
	Region string

	// IndexDocument becomes the default root object of created distributions.
	IndexDocument string
}

// Resolver finds the distribution aliased to a site, creating one when
// no distribution carries the alias.
type Resolver struct {
	log    logrus.FieldLogger
	client API
	opts   *Options
}

// Ensure interface compliance.
var _ DistributionResolver = (*Resolver)(nil)

// NewResolver creates a new distribution resolver using the given client.
func NewResolver(log logrus.FieldLogger, client API, opts *Options) *Resolver {
	return &Resolver{
		log:    log.WithField("component", "cdn-resolver"),
		client: client,
		opts:   opts,
	}
}

// Resolve returns the id of the first distribution whose alias set contains
// alias. Absence is not an error: when no distribution matches, a new one
// is created and its id returned.
//
// The list-then-create sequence is not atomic. Two concurrent deploys of
// the same alias can race and create duplicate distributions; this is a
// known limitation.
func (r *Resolver) Resolve(ctx context.Context, alias string) (string, error) {
	paginator := cloudfront.NewListDistributionsPaginator(
		r.client, &cloudfront.ListDistributionsInput{},
	)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("listing distributions: %w", err)
		}

		if page.DistributionList == nil {
			continue
		}

		for _, dist := range page.DistributionList.Items {
			if !hasAlias(dist, alias) {
				continue
			}

			id := aws.ToString(dist.Id)

			r.log.WithFields(logrus.Fields{
				"alias":        alias,
				"distribution": id,
			}).Debug("Resolved existing distribution")

			return id, nil
		}
	}

	return r.createDistribution(ctx, alias)
}

// createDistribution creates a distribution serving the bucket's website
// endpoint under the given alias and returns the new distribution's id.
func (r *Resolver) createDistribution(ctx context.Context, alias string) (string, error) {
	r.log.WithField("alias", alias).Info("No distribution found, creating one")

	originID := "s3-website-" + alias

	out, err := r.client.CreateDistribution(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: &cftypes.DistributionConfig{
			CallerReference: aws.String(callerReference()),
			Comment:         aws.String("deployoor: " + alias),
			Enabled:         aws.Bool(true),
			Aliases: &cftypes.Aliases{
				Quantity: aws.Int32(1),
				Items:    []string{alias},
			},
			DefaultRootObject: aws.String(r.opts.IndexDocument),
			Origins: &cftypes.Origins{
				Quantity: aws.Int32(1),
				Items: []cftypes.Origin{
					{
						Id:         aws.String(originID),
						DomainName: aws.String(websiteEndpoint(alias, r.opts.Region)),
						// S3 website endpoints only speak plain HTTP.
						CustomOriginConfig: &cftypes.CustomOriginConfig{
							HTTPPort:             aws.Int32(80),
							HTTPSPort:            aws.Int32(443),
							OriginProtocolPolicy: cftypes.OriginProtocolPolicyHttpOnly,
						},
					},
				},
			},
			DefaultCacheBehavior: &cftypes.DefaultCacheBehavior{
				TargetOriginId:       aws.String(originID),
				ViewerProtocolPolicy: cftypes.ViewerProtocolPolicyRedirectToHttps,
				MinTTL:               aws.Int64(0),
				Compress:             aws.Bool(true),
				ForwardedValues: &cftypes.ForwardedValues{
					QueryString: aws.Bool(true),
					Cookies: &cftypes.CookiePreference{
						Forward: cftypes.ItemSelectionAll,
					},
				},
				TrustedSigners: &cftypes.TrustedSigners{
					Enabled:  aws.Bool(false),
					Quantity: aws.Int32(0),
				},
			},
			ViewerCertificate: &cftypes.ViewerCertificate{
				CloudFrontDefaultCertificate: aws.Bool(true),
			},
			HttpVersion:   cftypes.HttpVersionHttp2,
			IsIPV6Enabled: aws.Bool(true),
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating distribution for %s: %w", alias, err)
	}

	id := ""
	if out.Distribution != nil {
		id = aws.ToString(out.Distribution.Id)
	}

	r.log.WithFields(logrus.Fields{
		"alias":        alias,
		"distribution": id,
	}).Info("Created distribution")

	return id, nil
}

// hasAlias returns true if the distribution's alias set contains alias.
func hasAlias(dist cftypes.DistributionSummary, alias string) bool {
	if dist.Aliases == nil {
		return false
	}

	for _, a := range dist.Aliases.Items {
		if a == alias {
			return true
		}
	}

	return false
}

// websiteEndpoint returns the bucket's default website endpoint.
func websiteEndpoint(bucket, region string) string {
	return fmt.Sprintf("%s.s3-website-%s.amazonaws.com", bucket, region)
}
