package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ethpandaops/deployoor/pkg/bucket"
	"github.com/ethpandaops/deployoor/pkg/cdn"
	"github.com/ethpandaops/deployoor/pkg/config"
	"github.com/ethpandaops/deployoor/pkg/deploy"
	"github.com/ethpandaops/deployoor/pkg/upload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	deploySite string
	deployDir  string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the site to S3 and CloudFront",
	Long: `Run a full deploy: ensure the bucket exists and is configured for
website hosting, upload the source directory, and invalidate the uploaded
paths on the site's CloudFront distribution.`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().StringVar(&deploySite, "site", "",
		"Site identifier (bucket name and distribution alias, overrides config)")
	deployCmd.Flags().StringVar(&deployDir, "dir", "",
		"Path to the local directory to upload (overrides config)")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags win over config file values.
	if deploySite != "" {
		cfg.Site.Name = deploySite
	}

	if deployDir != "" {
		cfg.Site.SourceDir = deployDir
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// Apply the config log level unless the flag was set explicitly.
	if !cmd.Root().PersistentFlags().Changed("log-level") {
		level, err := logrus.ParseLevel(cfg.Global.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q in config: %w", cfg.Global.LogLevel, err)
		}

		log.SetLevel(level)
	}

	// Setup context with signal handling.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	s3Client, cfClient, err := newAWSClients(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating AWS clients: %w", err)
	}

	provisioner := bucket.NewProvisioner(log, s3Client, &bucket.Options{
		Region:        cfg.AWS.Region,
		IndexDocument: cfg.Site.IndexDocument,
		ErrorDocument: cfg.Site.ErrorDocument,
	})

	uploader := upload.NewS3Uploader(log, s3Client, &upload.Options{
		Concurrency: cfg.Upload.Concurrency,
		RateLimit:   cfg.Upload.RateLimit,
	})

	resolver := cdn.NewResolver(log, cfClient, &cdn.Options{
		Region:        cfg.AWS.Region,
		IndexDocument: cfg.Site.IndexDocument,
	})

	invalidator := cdn.NewInvalidator(log, cfClient, resolver)

	deployer := deploy.New(log, provisioner, uploader, invalidator, &deploy.Options{
		Preflight: cfg.Upload.Preflight,
	})

	if err := deployer.Run(ctx, cfg.Site.Name, cfg.Site.SourceDir); err != nil {
		return fmt.Errorf("deploying %s: %w", cfg.Site.Name, err)
	}

	return nil
}

// newAWSClients builds the S3 and CloudFront clients once at startup.
// Components receive them by reference, nothing holds global client state.
func newAWSClients(
	ctx context.Context, cfg *config.Config,
) (*s3.Client, *cloudfront.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("loading AWS config: %w", err)
	}

	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(
			cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, "",
		)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}

		if cfg.AWS.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	cfClient := cloudfront.NewFromConfig(awsCfg)

	return s3Client, cfClient, nil
}
