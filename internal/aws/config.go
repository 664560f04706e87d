package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadAWSConfig loads the shared AWS config for region. An empty region falls back
// to us-east-1. endpointOverride points every client at a local emulator.
func LoadAWSConfig(ctx context.Context, region, endpointOverride string) (sdkaws.Config, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if endpointOverride != "" {
		opts = append(opts, config.WithBaseEndpoint(endpointOverride))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cfg, nil
}
