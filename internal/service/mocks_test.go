package service

import (
	"context"

	"github.com/cloo-solutions/kbstrap/internal/bedrock"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/identity"
	"github.com/cloo-solutions/kbstrap/internal/storage"
	"github.com/cloo-solutions/kbstrap/internal/vectorstore"
	"github.com/stretchr/testify/mock"
)

// MockBucketStore implements BucketProber, BucketCreator and ObjectUploader
type MockBucketStore struct {
	mock.Mock
}

func (m *MockBucketStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(ctx, bucket)
	return args.Bool(0), args.Error(1)
}

func (m *MockBucketStore) HeadBucket(ctx context.Context, bucket string) (*domain.BucketInfo, error) {
	args := m.Called(ctx, bucket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BucketInfo), args.Error(1)
}

func (m *MockBucketStore) CreateBucket(ctx context.Context, bucket, region string) error {
	args := m.Called(ctx, bucket, region)
	return args.Error(0)
}

func (m *MockBucketStore) Upload(ctx context.Context, localFile, bucket, key string) error {
	args := m.Called(ctx, localFile, bucket, key)
	return args.Error(0)
}

func (m *MockBucketStore) HeadObject(ctx context.Context, bucket, key string) (*storage.ObjectMetadata, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ObjectMetadata), args.Error(1)
}

// storedSize is the HeadObject result for an object of n bytes
func storedSize(n int64) *storage.ObjectMetadata {
	return &storage.ObjectMetadata{ContentLength: n, ContentType: "text/plain"}
}

// MockCollections implements CollectionDescriber and CollectionProvisioner
type MockCollections struct {
	mock.Mock
}

func (m *MockCollections) BatchDescribe(ctx context.Context, names []string) ([]domain.CollectionInfo, error) {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CollectionInfo), args.Error(1)
}

func (m *MockCollections) Create(ctx context.Context, spec vectorstore.CollectionSpec) (*domain.CollectionInfo, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionInfo), args.Error(1)
}

func (m *MockCollections) WaitActive(ctx context.Context, name string) (*domain.CollectionInfo, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionInfo), args.Error(1)
}

// MockIndexCreator implements IndexCreator
type MockIndexCreator struct {
	mock.Mock
}

func (m *MockIndexCreator) CreateVectorIndex(ctx context.Context, spec vectorstore.IndexSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

// MockKnowledgeBases implements KnowledgeBaseReader, KnowledgeBaseWriter and IngestionStarter
type MockKnowledgeBases struct {
	mock.Mock
}

func (m *MockKnowledgeBases) ListKnowledgeBases(ctx context.Context) ([]bedrock.KnowledgeBaseSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bedrock.KnowledgeBaseSummary), args.Error(1)
}

func (m *MockKnowledgeBases) GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBaseInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBaseInfo), args.Error(1)
}

func (m *MockKnowledgeBases) ListDataSources(ctx context.Context, kbID string) ([]string, error) {
	args := m.Called(ctx, kbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockKnowledgeBases) GetDataSource(ctx context.Context, kbID, dsID string) (*domain.DataSourceDescriptor, error) {
	args := m.Called(ctx, kbID, dsID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DataSourceDescriptor), args.Error(1)
}

func (m *MockKnowledgeBases) CreateKnowledgeBase(ctx context.Context, in bedrock.CreateKnowledgeBaseInput) (*domain.KnowledgeBaseInfo, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBaseInfo), args.Error(1)
}

func (m *MockKnowledgeBases) CreateDataSource(ctx context.Context, in bedrock.CreateDataSourceInput) (*domain.DataSourceDescriptor, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DataSourceDescriptor), args.Error(1)
}

func (m *MockKnowledgeBases) StartIngestionJob(ctx context.Context, kbID, dsID string) (string, error) {
	args := m.Called(ctx, kbID, dsID)
	return args.String(0), args.Error(1)
}

// MockRoles implements RoleProvisioner
type MockRoles struct {
	mock.Mock
}

func (m *MockRoles) CallerIdentity(ctx context.Context) (*identity.Identity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

func (m *MockRoles) EnsureKnowledgeBaseRole(ctx context.Context, spec identity.RoleSpec) (string, error) {
	args := m.Called(ctx, spec)
	return args.String(0), args.Error(1)
}

func (m *MockRoles) AttachCollectionAccess(ctx context.Context, roleName, collectionARN string) error {
	args := m.Called(ctx, roleName, collectionARN)
	return args.Error(0)
}

// MockRetriever implements Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) RetrieveAndGenerate(ctx context.Context, question, kbID, modelARN string, limit int) (*domain.GeneratedAnswer, error) {
	args := m.Called(ctx, question, kbID, modelARN, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneratedAnswer), args.Error(1)
}

func (m *MockRetriever) Retrieve(ctx context.Context, question, kbID string, limit int) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, question, kbID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

// MockProber implements ResourceProber
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, kind domain.ResourceKind, name string) (*domain.ResourceDescriptor, error) {
	args := m.Called(ctx, kind, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResourceDescriptor), args.Error(1)
}

// MockProvisioner implements KnowledgeBaseProvisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Provision(ctx context.Context, in CreateInput) (*domain.KnowledgeBaseInfo, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBaseInfo), args.Error(1)
}

func foundKnowledgeBase(name, id string, dataSources ...domain.DataSourceDescriptor) *domain.ResourceDescriptor {
	desc, err := domain.NewFoundDescriptor(domain.ResourceKindKnowledgeBase, name, id, &domain.KnowledgeBaseInfo{
		ID:          id,
		ARN:         "arn:aws:bedrock:us-west-2:123456789012:knowledge-base/" + id,
		Name:        name,
		Description: "Multi data source knowledge base.",
		DataSources: dataSources,
	})
	if err != nil {
		panic(err)
	}
	return desc
}

func s3DataSource(kbID, dsID, bucket string) domain.DataSourceDescriptor {
	return domain.DataSourceDescriptor{
		ID:              dsID,
		KnowledgeBaseID: kbID,
		Name:            bucket,
		Kind:            domain.DataSourceKindS3,
		Location:        domain.BucketARN(bucket),
	}
}
