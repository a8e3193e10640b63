package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockS3API struct {
	mock.Mock
}

func (m *MockS3API) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadBucketOutput), args.Error(1)
}

func (m *MockS3API) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.CreateBucketOutput), args.Error(1)
}

func (m *MockS3API) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3API) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func TestBucketExists_Found(t *testing.T) {
	api := new(MockS3API)
	api.On("HeadBucket", mock.Anything, mock.MatchedBy(func(in *s3.HeadBucketInput) bool {
		return aws.ToString(in.Bucket) == "bedrock-kb-1"
	})).Return(&s3.HeadBucketOutput{}, nil)

	exists, err := NewS3ClientWithAPI(api).BucketExists(context.Background(), "bedrock-kb-1")

	require.NoError(t, err)
	assert.True(t, exists)
	api.AssertExpectations(t)
}

func TestHeadBucket_ReportsProviderRegion(t *testing.T) {
	api := new(MockS3API)
	api.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{
		BucketRegion: aws.String("eu-west-1"),
	}, nil)

	info, err := NewS3ClientWithAPI(api).HeadBucket(context.Background(), "bedrock-kb-1")

	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "bedrock-kb-1", info.Name)
	assert.Equal(t, "eu-west-1", info.Region)
}

func TestHeadBucket_MissingIsNil(t *testing.T) {
	api := new(MockS3API)
	api.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, &smithy.GenericAPIError{Code: "NotFound"})

	info, err := NewS3ClientWithAPI(api).HeadBucket(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestBucketExists_NotFoundIsNotAnError(t *testing.T) {
	api := new(MockS3API)
	api.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, &smithy.GenericAPIError{Code: "NotFound"})

	exists, err := NewS3ClientWithAPI(api).BucketExists(context.Background(), "missing")

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBucketExists_AccessDeniedPropagates(t *testing.T) {
	api := new(MockS3API)
	api.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, &smithy.GenericAPIError{Code: "Forbidden"})

	exists, err := NewS3ClientWithAPI(api).BucketExists(context.Background(), "theirs")

	assert.Error(t, err)
	assert.False(t, exists)
	assert.Equal(t, domain.ErrCodeProvider, domain.ErrorCode(err))
}

func TestCreateBucketInput_RegionConditional(t *testing.T) {
	in := CreateBucketInput("b", "us-east-1")
	assert.Nil(t, in.CreateBucketConfiguration)

	in = CreateBucketInput("b", "")
	assert.Nil(t, in.CreateBucketConfiguration)

	in = CreateBucketInput("b", "eu-west-1")
	require.NotNil(t, in.CreateBucketConfiguration)
	assert.Equal(t, "eu-west-1", string(in.CreateBucketConfiguration.LocationConstraint))
}

func TestCreateBucket_AlreadyOwnedIsSuccess(t *testing.T) {
	api := new(MockS3API)
	api.On("CreateBucket", mock.Anything, mock.Anything).Return(nil, &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"})

	err := NewS3ClientWithAPI(api).CreateBucket(context.Background(), "b", "us-west-2")
	assert.NoError(t, err)
}

func TestCreateBucket_Error(t *testing.T) {
	api := new(MockS3API)
	api.On("CreateBucket", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	err := NewS3ClientWithAPI(api).CreateBucket(context.Background(), "b", "us-west-2")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create bucket")
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	api := new(MockS3API)
	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, _ := io.ReadAll(in.Body)
		return aws.ToString(in.Bucket) == "b" &&
			aws.ToString(in.Key) == "docs/doc.txt" &&
			aws.ToInt64(in.ContentLength) == 5 &&
			string(body) == "hello"
	})).Return(&s3.PutObjectOutput{}, nil)

	err := NewS3ClientWithAPI(api).Upload(context.Background(), path, "b", "docs/doc.txt")

	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestUpload_MissingFile(t *testing.T) {
	api := new(MockS3API)

	err := NewS3ClientWithAPI(api).Upload(context.Background(), filepath.Join(t.TempDir(), "nope"), "b", "nope")

	assert.Error(t, err)
	api.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}
