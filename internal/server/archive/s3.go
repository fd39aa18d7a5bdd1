package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
)

// S3Settings addresses an S3-compatible bucket (AWS or MinIO).
type S3Settings struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = config.LoadDefaultConfig

type S3Archive struct {
	client objectPutter
	bucket string
}

// NewS3Archive builds a client with static credentials. Path-style addressing
// is used whenever a custom endpoint is set.
func NewS3Archive(ctx context.Context, s S3Settings) (*S3Archive, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKey,
			s.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{client: client, bucket: s.Bucket}, nil
}

func (a *S3Archive) Store(ctx context.Context, rec *models.ConsentRecord) error {
	body, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encode record %d: %w", rec.ID, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ObjectKey(rec)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"signature-hash": rec.SignatureHash,
		},
	})
	if err != nil {
		return fmt.Errorf("put record %d: %w", rec.ID, err)
	}
	return nil
}
