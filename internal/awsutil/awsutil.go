// Package awsutil loads the shared AWS configuration used by the Bedrock,
// S3, SES and DynamoDB adapters.
package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Settings selects region and credentials. Static keys win over a
// profile; with neither the default credential chain is used.
type Settings struct {
	Region    string
	Profile   string
	AccessKey string
	SecretKey string
}

// LoadOptions translates s into config load options.
func LoadOptions(s Settings) []func(*config.LoadOptions) error {
	region := s.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	switch {
	case s.AccessKey != "" && s.SecretKey != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, ""),
		))
	case s.Profile != "":
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}
	return opts
}

// Load builds an aws.Config from s.
func Load(ctx context.Context, s Settings) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, LoadOptions(s)...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}
