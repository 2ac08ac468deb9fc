package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ivlev/panel2video/internal/errs"
)

// ObjectGetter is the part of *s3.Client the resolver needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client loads the default AWS configuration for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (r *Resolver) fetchS3(ctx context.Context, ref string) (*image.RGBA, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return nil, errs.Resolution(errs.ReasonNotFound, ref, fmt.Errorf("expected s3://bucket/key"))
	}
	if r.s3 == nil {
		return nil, errs.Resolution(errs.ReasonUnreachable, ref, fmt.Errorf("s3 client is not configured"))
	}

	out, err := r.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nsb *types.NoSuchBucket
		if errors.As(err, &nsk) || errors.As(err, &nsb) {
			return nil, errs.Resolution(errs.ReasonNotFound, ref, err)
		}
		return nil, errs.Resolution(errs.ReasonUnreachable, ref, err)
	}
	defer out.Body.Close()

	return decode(out.Body, ref)
}
