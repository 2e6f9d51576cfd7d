package s3repo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"audio_transcription/config"
	"audio_transcription/entity"
)

const traceName = "S3-Repo"

const defaultRegion = "us-east-1"

type S3Repository struct {
	sess *s3.Client
}

var _ entity.StorageRepository = (*S3Repository)(nil)

// NewS3Repository builds a client for AWS S3 or, when cfg.Endpoint is set,
// for an S3 compatible server such as MinIO. Static keys from cfg win;
// otherwise the default AWS chain (env, shared profile, IAM role) is used.
func NewS3Repository(ctx context.Context, cfg config.S3) (*S3Repository, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	if cfg.Endpoint != "" {
		hostAddress := cfg.Endpoint
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...any) (aws.Endpoint, error) {
				return aws.Endpoint{
					PartitionID:       "aws",
					SigningRegion:     region,
					URL:               hostAddress,
					HostnameImmutable: true,
				}, nil
			}),
		))
	}

	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3repo - LoadDefaultConfig: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &S3Repository{s3Client}, nil
}

// DownloadObject streams bucket/key into w. Writers that support WriteAt,
// such as *os.File, are written directly without buffering the object.
func (s3Repo *S3Repository) DownloadObject(ctx context.Context, bucket string, key string, w io.Writer) error {
	ctx, span := otel.Tracer(traceName).Start(ctx, "DownloadObject")
	defer span.End()

	span.SetAttributes(attribute.String("bucket", bucket))
	span.SetAttributes(attribute.String("key", key))

	downloader := manager.NewDownloader(s3Repo.sess)
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	if wa, ok := w.(io.WriterAt); ok {
		numBytes, err := downloader.Download(ctx, wa, input)
		if err != nil {
			return err
		}
		if numBytes < 1 {
			return errors.New("zero bytes written")
		}
		return nil
	}

	var buffer []byte
	bw := manager.NewWriteAtBuffer(buffer)

	numBytes, err := downloader.Download(ctx, bw, input)
	if err != nil {
		return err
	}

	if numBytes < 1 {
		return errors.New("zero bytes written to memory")
	}

	if _, err := w.Write(bw.Bytes()); err != nil {
		return err
	}

	return nil
}
