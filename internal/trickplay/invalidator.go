package trickplay

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CloudFrontAPI is the subset of the CloudFront client the invalidator uses.
// *cloudfront.Client satisfies it; tests provide fakes.
type CloudFrontAPI interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// Invalidator is the cache invalidation stage. Invalidation is fire-and-
// forget: the CDN completes it eventually and the stage never polls.
type Invalidator struct {
	CDN CloudFrontAPI
}

// NewInvalidator wires an invalidation stage.
func NewInvalidator(cdn CloudFrontAPI) *Invalidator {
	return &Invalidator{CDN: cdn}
}

// Invalidate submits one batch invalidation for all paths and returns the
// provider-assigned invalidation id. An empty path list is a warned no-op
// with no identifier and no network call. A missing distribution id or a
// provider error raises an invalidation-kind failure.
func (iv *Invalidator) Invalidate(ctx context.Context, paths []string, distributionID string) (string, error) {
	if distributionID == "" {
		return "", Errorf(KindInvalidation, "invalidate cache", "CloudFront distribution ID not configured")
	}
	if len(paths) == 0 {
		log.Warn().Msg("No paths provided for invalidation")
		return "", nil
	}

	log.Info().
		Str("distributionId", distributionID).
		Int("pathCount", len(paths)).
		Msg("Invalidating CloudFront cache")

	callerRef := uuid.NewString()
	out, err := iv.CDN.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: &distributionID,
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: &callerRef,
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return "", E(KindInvalidation, "create invalidation", err)
	}

	invalidationID := ""
	if out.Invalidation != nil {
		invalidationID = aws.ToString(out.Invalidation.Id)
	}

	log.Info().
		Str("distributionId", distributionID).
		Str("invalidationId", invalidationID).
		Msg("Cache invalidation created")

	return invalidationID, nil
}
