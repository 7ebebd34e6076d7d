// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Every Lambda in the pipeline needs some subset of: AWS config, S3, SQS,
// CloudFront, and an SSM parameter fetch for the distribution id. This
// package extracts the common init patterns so each Lambda's init() is a
// short composition of helpers.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/mediaops/trickplay-pipeline/internal/logging"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitS3 creates an S3 client.
func InitS3(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}

// InitSQS creates an SQS client.
func InitSQS(cfg aws.Config) *sqs.Client {
	return sqs.NewFromConfig(cfg)
}

// InitCloudFront creates a CloudFront client.
func InitCloudFront(cfg aws.Config) *cloudfront.Client {
	return cloudfront.NewFromConfig(cfg)
}

// InitEventBridge creates an EventBridge client.
func InitEventBridge(cfg aws.Config) *eventbridge.Client {
	return eventbridge.NewFromConfig(cfg)
}

// LoadDistributionID resolves the CloudFront distribution id: the
// AWS_CLOUDFRONT_DISTRIBUTION_ID env var wins, otherwise the id is fetched
// from SSM Parameter Store. Non-fatal: returns "" with a warning when
// neither source yields a value — the invalidation stage reports the typed
// error at call time.
func LoadDistributionID(ssmClient *ssm.Client) string {
	if id := os.Getenv("AWS_CLOUDFRONT_DISTRIBUTION_ID"); id != "" {
		return id
	}

	paramName := logging.EnvOrDefault("SSM_DISTRIBUTION_ID_PARAM", "/trickplay/prod/cloudfront-distribution-id")
	ssmStart := time.Now()
	result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
		Name: &paramName,
	})
	if err != nil {
		log.Warn().Err(err).Str("param", paramName).Msg("CloudFront distribution id not found in SSM — invalidation disabled")
		return ""
	}
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("CloudFront distribution id loaded from SSM")
	return *result.Parameter.Value
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
