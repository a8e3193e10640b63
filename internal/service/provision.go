package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/kbstrap/internal/bedrock"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/identity"
	"github.com/cloo-solutions/kbstrap/internal/telemetry"
	"github.com/cloo-solutions/kbstrap/internal/vectorstore"
	"go.uber.org/zap"
)

// BucketCreator creates buckets on the create path
type BucketCreator interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, region string) error
}

// CollectionProvisioner creates vector collections
type CollectionProvisioner interface {
	Create(ctx context.Context, spec vectorstore.CollectionSpec) (*domain.CollectionInfo, error)
	WaitActive(ctx context.Context, name string) (*domain.CollectionInfo, error)
}

// IndexCreator creates the vector index inside a collection
type IndexCreator interface {
	CreateVectorIndex(ctx context.Context, spec vectorstore.IndexSpec) error
}

// IndexCreatorFactory builds an IndexCreator for a collection endpoint,
// which is only known once the collection exists
type IndexCreatorFactory func(endpoint string) (IndexCreator, error)

// RoleProvisioner manages the knowledge base service role
type RoleProvisioner interface {
	CallerIdentity(ctx context.Context) (*identity.Identity, error)
	EnsureKnowledgeBaseRole(ctx context.Context, spec identity.RoleSpec) (string, error)
	AttachCollectionAccess(ctx context.Context, roleName, collectionARN string) error
}

// KnowledgeBaseWriter is the write side of the knowledge base service
type KnowledgeBaseWriter interface {
	CreateKnowledgeBase(ctx context.Context, in bedrock.CreateKnowledgeBaseInput) (*domain.KnowledgeBaseInfo, error)
	CreateDataSource(ctx context.Context, in bedrock.CreateDataSourceInput) (*domain.DataSourceDescriptor, error)
	StartIngestionJob(ctx context.Context, kbID, dsID string) (string, error)
}

// ProvisionerConfig carries the fixed provisioning parameters
type ProvisionerConfig struct {
	Region             string
	EmbeddingModelARN  string
	EmbeddingDimension int
}

// Provisioner runs the multi-step recipe that registers a brand-new
// knowledge base. Each step references the identifiers of the previous ones.
type Provisioner struct {
	buckets     BucketCreator
	collections CollectionProvisioner
	indexes     IndexCreatorFactory
	roles       RoleProvisioner
	kbs         KnowledgeBaseWriter
	cfg         ProvisionerConfig
	logger      *zap.Logger
}

// NewProvisioner creates a new Provisioner instance
func NewProvisioner(
	buckets BucketCreator,
	collections CollectionProvisioner,
	indexes IndexCreatorFactory,
	roles RoleProvisioner,
	kbs KnowledgeBaseWriter,
	cfg ProvisionerConfig,
	logger *zap.Logger,
) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = vectorstore.DefaultDimension
	}
	return &Provisioner{
		buckets:     buckets,
		collections: collections,
		indexes:     indexes,
		roles:       roles,
		kbs:         kbs,
		cfg:         cfg,
		logger:      logger,
	}
}

// Provision creates storage, the vector index and the knowledge base with
// its data sources. Resources found by reconciliation are reused.
func (p *Provisioner) Provision(ctx context.Context, in CreateInput) (*domain.KnowledgeBaseInfo, error) {
	ctx, span := telemetry.StartSpan(ctx, "provision.knowledge_base", telemetry.SpanAttributes{
		ResourceKind: string(domain.ResourceKindKnowledgeBase),
		ResourceName: in.Name,
		Operation:    "create",
	})
	defer span.End()

	kb, err := p.provision(ctx, in)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return kb, nil
}

func (p *Provisioner) provision(ctx context.Context, in CreateInput) (*domain.KnowledgeBaseInfo, error) {
	caller, err := p.roles.CallerIdentity(ctx)
	if err != nil {
		return nil, err
	}

	bucketNames := make([]string, 0, len(in.DataSources))
	for _, ds := range in.DataSources {
		if err := p.ensureBucket(ctx, ds.BucketName, in.Existing[domain.ResourceKindBucket]); err != nil {
			return nil, err
		}
		bucketNames = append(bucketNames, ds.BucketName)
	}

	roleARN, err := p.roles.EnsureKnowledgeBaseRole(ctx, identity.RoleSpec{
		Name:              in.RoleName,
		AccountID:         caller.Account,
		Region:            p.cfg.Region,
		BucketNames:       bucketNames,
		EmbeddingModelARN: p.cfg.EmbeddingModelARN,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("knowledge base role ready", zap.String("role_arn", roleARN))

	collection, err := p.ensureCollection(ctx, in.VectorCollection, []string{caller.PrincipalARN(), roleARN},
		in.Existing[domain.ResourceKindVectorCollection])
	if err != nil {
		return nil, err
	}
	if err := p.roles.AttachCollectionAccess(ctx, in.RoleName, collection.ARN); err != nil {
		return nil, err
	}

	indexes, err := p.indexes(collection.Endpoint)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to create index client", err)
	}
	if err := indexes.CreateVectorIndex(ctx, vectorstore.IndexSpec{
		Name:      in.VectorIndex,
		Dimension: p.cfg.EmbeddingDimension,
	}); err != nil {
		return nil, err
	}
	p.logger.Info("vector index ready",
		zap.String("collection", collection.Name),
		zap.String("index", in.VectorIndex),
	)

	kb, err := p.kbs.CreateKnowledgeBase(ctx, bedrock.CreateKnowledgeBaseInput{
		Name:              in.Name,
		Description:       in.Description,
		RoleARN:           roleARN,
		EmbeddingModelARN: p.cfg.EmbeddingModelARN,
		CollectionARN:     collection.ARN,
		IndexName:         in.VectorIndex,
		VectorField:       vectorstore.VectorField,
		TextField:         vectorstore.TextField,
		MetadataField:     vectorstore.MetadataField,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("created knowledge base", zap.String("knowledge_base_id", kb.ID), zap.String("name", kb.Name))

	kb.DataSources = make([]domain.DataSourceDescriptor, 0, len(in.DataSources))
	for i, spec := range in.DataSources {
		if spec.Kind != domain.DataSourceKindS3 {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "unsupported data source kind",
				fmt.Errorf("kind %q", spec.Kind))
		}
		ds, err := p.kbs.CreateDataSource(ctx, bedrock.CreateDataSourceInput{
			KnowledgeBaseID:  kb.ID,
			Name:             dataSourceName(in.Name, i),
			BucketARN:        domain.BucketARN(spec.BucketName),
			ChunkingStrategy: in.ChunkingStrategy,
		})
		if err != nil {
			return nil, err
		}
		kb.DataSources = append(kb.DataSources, *ds)
	}

	return kb, nil
}

func (p *Provisioner) ensureBucket(ctx context.Context, name string, existing *domain.ResourceDescriptor) error {
	if existing != nil && existing.Name == name {
		if existing.Found() {
			return nil
		}
	} else {
		exists, err := p.buckets.BucketExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
	}

	if err := p.buckets.CreateBucket(ctx, name, p.cfg.Region); err != nil {
		return err
	}
	p.logger.Info("created bucket", zap.String("bucket", name), zap.String("region", p.cfg.Region))
	return nil
}

func (p *Provisioner) ensureCollection(ctx context.Context, name string, principals []string, existing *domain.ResourceDescriptor) (*domain.CollectionInfo, error) {
	if existing.Found() {
		info, ok := existing.Payload.(*domain.CollectionInfo)
		if !ok {
			return nil, domain.ErrFabricatedDescriptor
		}
		if info.Status == domain.CollectionStatusActive {
			return info, nil
		}
		return p.collections.WaitActive(ctx, name)
	}

	info, err := p.collections.Create(ctx, vectorstore.CollectionSpec{
		Name:       name,
		Principals: principals,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("created vector collection", zap.String("collection", info.Name), zap.String("endpoint", info.Endpoint))
	return info, nil
}

func dataSourceName(kbName string, i int) string {
	return fmt.Sprintf("%s-s3-%d", kbName, i+1)
}
