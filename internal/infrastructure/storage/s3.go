package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/provider"
	"go.uber.org/zap"
)

// DeleteObjects accepts at most 1000 keys per call, which matches the list page size.
const maxKeysPerPage = 1000

// s3API is the part of *s3.Client the asset store uses.
type s3API interface {
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3AssetStorage deletes tenant assets from an S3-compatible bucket.
type S3AssetStorage struct {
	client s3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3AssetStorage builds the client from static credentials. A custom endpoint switches
// to path-style addressing for S3-compatible providers.
func NewS3AssetStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3AssetStorage, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 asset storage initialised",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region))

	return newS3AssetStorage(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3AssetStorage(client s3API, bucket, prefix string, logger *zap.Logger) *S3AssetStorage {
	return &S3AssetStorage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// DeletePrefix removes every object under the configured root joined with prefix.
func (s *S3AssetStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	fullPrefix := s.objectPrefix(prefix)
	if fullPrefix == "" || fullPrefix == "/" {
		return 0, fmt.Errorf("refusing to delete an empty prefix")
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(fullPrefix),
		MaxKeys: aws.Int32(maxKeysPerPage),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to list objects under %s: %w", fullPrefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete objects under %s: %w", fullPrefix, err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return deleted + len(objects) - len(out.Errors), fmt.Errorf("failed to delete %d objects under %s, first %s: %s",
				len(out.Errors), fullPrefix, aws.ToString(first.Key), aws.ToString(first.Message))
		}
		deleted += len(objects)
	}

	s.logger.Info("Deleted assets",
		zap.String("bucket", s.bucket),
		zap.String("prefix", fullPrefix),
		zap.Int("objects", deleted))
	return deleted, nil
}

func (s *S3AssetStorage) objectPrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if s.prefix == "" {
		return prefix
	}
	return s.prefix + "/" + prefix
}

// NoopAssetStorage is used when no bucket is configured.
type NoopAssetStorage struct{}

func (NoopAssetStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return 0, nil
}

var (
	_ provider.AssetStorage = (*S3AssetStorage)(nil)
	_ provider.AssetStorage = NoopAssetStorage{}
)
