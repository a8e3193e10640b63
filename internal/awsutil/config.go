// Package awsutil loads AWS configuration and classifies provider errors
// into domain error codes.
package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/cloo-solutions/kbstrap/internal/domain"
)

// Config selects region and credentials. Empty credentials fall back to the
// default chain (environment, shared config, SSO).
type Config struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Load resolves an aws.Config. A missing region is a setup failure.
func Load(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, domain.NewDomainErrorWithCause(domain.ErrCodeFatalSetup, "failed to load AWS config", err)
	}
	if awsCfg.Region == "" {
		return aws.Config{}, domain.ErrRegionResolution
	}

	return awsCfg, nil
}

// FoundationModelARN builds the ARN of a foundation model in a region
func FoundationModelARN(region, modelID string) string {
	return fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", region, modelID)
}
