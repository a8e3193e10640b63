package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/kbstrap/internal/bedrock"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestProber() (*Prober, *MockBucketStore, *MockCollections, *MockKnowledgeBases) {
	buckets := new(MockBucketStore)
	collections := new(MockCollections)
	kbs := new(MockKnowledgeBases)
	return NewProber(buckets, collections, kbs, nil), buckets, collections, kbs
}

func TestProbe_BucketFound(t *testing.T) {
	ctx := context.Background()
	prober, buckets, _, _ := newTestProber()
	buckets.On("HeadBucket", mock.Anything, "bedrock-kb-0232519-1").Return(&domain.BucketInfo{
		Name:   "bedrock-kb-0232519-1",
		Region: "us-west-2",
	}, nil)

	desc, err := prober.Probe(ctx, domain.ResourceKindBucket, "bedrock-kb-0232519-1")
	require.NoError(t, err)

	assert.True(t, desc.Found())
	info, ok := desc.Payload.(*domain.BucketInfo)
	require.True(t, ok)
	assert.Equal(t, "bedrock-kb-0232519-1", info.Name)
	assert.Equal(t, "us-west-2", info.Region)
}

func TestProbe_BucketRegionComesFromProvider(t *testing.T) {
	ctx := context.Background()
	buckets := new(MockBucketStore)
	buckets.On("HeadBucket", mock.Anything, "bedrock-kb-0232519-1").Return(&domain.BucketInfo{
		Name:   "bedrock-kb-0232519-1",
		Region: "eu-west-1",
	}, nil)
	prober := NewProber(buckets, new(MockCollections), new(MockKnowledgeBases), nil)

	desc, err := prober.Probe(ctx, domain.ResourceKindBucket, "bedrock-kb-0232519-1")
	require.NoError(t, err)

	info, ok := desc.Payload.(*domain.BucketInfo)
	require.True(t, ok)
	assert.Equal(t, "eu-west-1", info.Region)
	buckets.AssertNotCalled(t, "BucketExists", mock.Anything, mock.Anything)
}

func TestProbe_BucketNotFoundIsNotAnError(t *testing.T) {
	ctx := context.Background()
	prober, buckets, _, _ := newTestProber()
	buckets.On("HeadBucket", mock.Anything, "missing").Return(nil, nil)

	desc, err := prober.Probe(ctx, domain.ResourceKindBucket, "missing")
	require.NoError(t, err)

	assert.Equal(t, domain.ExistenceNotFound, desc.Existence)
	assert.Nil(t, desc.Payload)
}

func TestProbe_BucketErrorPropagates(t *testing.T) {
	ctx := context.Background()
	prober, buckets, _, _ := newTestProber()
	denied := domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "failed to head bucket", errors.New("403"))
	buckets.On("HeadBucket", mock.Anything, "locked").Return(nil, denied)

	desc, err := prober.Probe(ctx, domain.ResourceKindBucket, "locked")
	assert.Nil(t, desc)
	assert.ErrorIs(t, err, denied)
}

func TestProbe_CollectionEmptyResultIsNotFound(t *testing.T) {
	ctx := context.Background()
	prober, _, collections, _ := newTestProber()
	collections.On("BatchDescribe", mock.Anything, []string{"bedrock-sample-rag-0232519-f"}).Return([]domain.CollectionInfo{}, nil)

	desc, err := prober.Probe(ctx, domain.ResourceKindVectorCollection, "bedrock-sample-rag-0232519-f")
	require.NoError(t, err)
	assert.False(t, desc.Found())
}

func TestProbe_CollectionFound(t *testing.T) {
	ctx := context.Background()
	prober, _, collections, _ := newTestProber()
	collections.On("BatchDescribe", mock.Anything, []string{"rag"}).Return([]domain.CollectionInfo{
		{ID: "col-1", Name: "rag", ARN: "arn:aws:aoss:us-west-2:123456789012:collection/col-1", Status: domain.CollectionStatusActive},
	}, nil)

	desc, err := prober.Probe(ctx, domain.ResourceKindVectorCollection, "rag")
	require.NoError(t, err)

	assert.True(t, desc.Found())
	assert.Equal(t, "col-1", desc.ID)
	info := desc.Payload.(*domain.CollectionInfo)
	assert.Equal(t, domain.CollectionStatusActive, info.Status)
}

func TestProbe_KnowledgeBaseFirstMatchWins(t *testing.T) {
	ctx := context.Background()
	prober, _, _, kbs := newTestProber()

	kbs.On("ListKnowledgeBases", mock.Anything).Return([]bedrock.KnowledgeBaseSummary{
		{ID: "KB0", Name: "other"},
		{ID: "KB1", Name: "kb-A"},
		{ID: "KB2", Name: "kb-A"},
	}, nil)
	kbs.On("GetKnowledgeBase", mock.Anything, "KB1").Return(&domain.KnowledgeBaseInfo{ID: "KB1", Name: "kb-A"}, nil)
	kbs.On("ListDataSources", mock.Anything, "KB1").Return([]string{"DS1", "DS2"}, nil)
	ds1 := s3DataSource("KB1", "DS1", "bucket-1")
	ds2 := s3DataSource("KB1", "DS2", "bucket-2")
	kbs.On("GetDataSource", mock.Anything, "KB1", "DS1").Return(&ds1, nil)
	kbs.On("GetDataSource", mock.Anything, "KB1", "DS2").Return(&ds2, nil)

	desc, err := prober.Probe(ctx, domain.ResourceKindKnowledgeBase, "kb-A")
	require.NoError(t, err)

	assert.True(t, desc.Found())
	assert.Equal(t, "KB1", desc.ID)
	kb := desc.Payload.(*domain.KnowledgeBaseInfo)
	require.Len(t, kb.DataSources, 2)
	assert.Equal(t, "DS1", kb.DataSources[0].ID)
	assert.Equal(t, "DS2", kb.DataSources[1].ID)
	kbs.AssertNotCalled(t, "GetKnowledgeBase", mock.Anything, "KB2")
	kbs.AssertNumberOfCalls(t, "GetDataSource", 2)
}

func TestProbe_KnowledgeBaseNotListed(t *testing.T) {
	ctx := context.Background()
	prober, _, _, kbs := newTestProber()
	kbs.On("ListKnowledgeBases", mock.Anything).Return([]bedrock.KnowledgeBaseSummary{{ID: "KB0", Name: "other"}}, nil)

	desc, err := prober.Probe(ctx, domain.ResourceKindKnowledgeBase, "kb-A")
	require.NoError(t, err)

	assert.False(t, desc.Found())
	kbs.AssertNotCalled(t, "GetKnowledgeBase", mock.Anything, mock.Anything)
}

func TestProbe_KnowledgeBaseDataSourceErrorPropagates(t *testing.T) {
	ctx := context.Background()
	prober, _, _, kbs := newTestProber()
	kbs.On("ListKnowledgeBases", mock.Anything).Return([]bedrock.KnowledgeBaseSummary{{ID: "KB1", Name: "kb-A"}}, nil)
	kbs.On("GetKnowledgeBase", mock.Anything, "KB1").Return(&domain.KnowledgeBaseInfo{ID: "KB1", Name: "kb-A"}, nil)
	kbs.On("ListDataSources", mock.Anything, "KB1").Return(nil,
		domain.NewDomainErrorWithCause(domain.ErrCodeTransientProvider, "failed to list data sources", errors.New("throttled")))

	_, err := prober.Probe(ctx, domain.ResourceKindKnowledgeBase, "kb-A")
	assert.True(t, domain.IsTransient(err))
}

func TestProbe_DataSourceByCompositeName(t *testing.T) {
	ctx := context.Background()
	prober, _, _, kbs := newTestProber()
	ds := s3DataSource("KB1", "DS1", "bucket-1")
	kbs.On("GetDataSource", mock.Anything, "KB1", "DS1").Return(&ds, nil)
	kbs.On("GetDataSource", mock.Anything, "KB1", "DS9").Return(nil,
		domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "failed to get data source", errors.New("404")))

	desc, err := prober.Probe(ctx, domain.ResourceKindDataSource, "KB1/DS1")
	require.NoError(t, err)
	assert.True(t, desc.Found())
	assert.Equal(t, "DS1", desc.ID)

	desc, err = prober.Probe(ctx, domain.ResourceKindDataSource, "KB1/DS9")
	require.NoError(t, err)
	assert.False(t, desc.Found())

	_, err = prober.Probe(ctx, domain.ResourceKindDataSource, "DS1")
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
}

func TestProbe_Validation(t *testing.T) {
	ctx := context.Background()
	prober, _, _, _ := newTestProber()

	_, err := prober.Probe(ctx, domain.ResourceKindBucket, "")
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))

	_, err = prober.Probe(ctx, domain.ResourceKind("queue"), "q")
	assert.ErrorIs(t, err, domain.ErrInvalidResourceKind)
}
