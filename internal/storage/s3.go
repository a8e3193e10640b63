package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cloo-solutions/kbstrap/internal/awsutil"
	"github.com/cloo-solutions/kbstrap/internal/domain"
)

// defaultRegion takes no LocationConstraint on CreateBucket
const defaultRegion = "us-east-1"

// S3ClientConfig holds configuration for S3Client
type S3ClientConfig struct {
	// Endpoint overrides the S3 endpoint for S3-compatible stores (RustFS, LocalStack)
	Endpoint     string
	UsePathStyle bool
}

// S3API is the subset of the S3 client used here
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Client provides bucket and object operations for the knowledge base data source
type S3Client struct {
	client S3API
}

// NewS3Client creates a new S3Client from a resolved AWS config
func NewS3Client(awsCfg aws.Config, cfg S3ClientConfig) *S3Client {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{client: client}
}

// NewS3ClientWithAPI wraps an existing S3 API implementation
func NewS3ClientWithAPI(api S3API) *S3Client {
	return &S3Client{client: api}
}

// HeadBucket returns what the provider reports about a bucket. A missing
// bucket is (nil, nil); auth and transport failures are errors.
func (c *S3Client) HeadBucket(ctx context.Context, bucket string) (*domain.BucketInfo, error) {
	out, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if awsutil.IsNotFound(err) {
			return nil, nil
		}
		return nil, awsutil.Classify("failed to head bucket", err)
	}
	return &domain.BucketInfo{
		Name:   bucket,
		Region: aws.ToString(out.BucketRegion),
	}, nil
}

// BucketExists checks for a bucket without reading its contents
func (c *S3Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	info, err := c.HeadBucket(ctx, bucket)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// CreateBucket creates a bucket. The default region must not send a
// location constraint; every other region must.
func (c *S3Client) CreateBucket(ctx context.Context, bucket, region string) error {
	_, err := c.client.CreateBucket(ctx, CreateBucketInput(bucket, region))
	if err != nil {
		if awsutil.IsConflict(err) {
			return nil
		}
		return awsutil.Classify("failed to create bucket", err)
	}
	return nil
}

// CreateBucketInput shapes the CreateBucket request for a region
func CreateBucketInput(bucket, region string) *s3.CreateBucketInput {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	if region != "" && region != defaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	return input
}

// Upload puts a local file into the bucket under key, overwriting any existing object
func (c *S3Client) Upload(ctx context.Context, localFile, bucket, key string) error {
	f, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localFile, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localFile, err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	}
	if ct := mime.TypeByExtension(filepath.Ext(localFile)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		return awsutil.Classify("failed to put object", err)
	}
	return nil
}

// HeadObject checks if an object exists and returns its metadata
func (c *S3Client) HeadObject(ctx context.Context, bucket, key string) (*ObjectMetadata, error) {
	output, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, awsutil.Classify("failed to head object", err)
	}

	return &ObjectMetadata{
		ContentLength: aws.ToInt64(output.ContentLength),
		ContentType:   aws.ToString(output.ContentType),
		ETag:          aws.ToString(output.ETag),
	}, nil
}

// ObjectMetadata contains metadata about an S3 object
type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}
