package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/telemetry"
	"go.uber.org/zap"
)

// KnowledgeBaseProvisioner runs the creation recipe
type KnowledgeBaseProvisioner interface {
	Provision(ctx context.Context, in CreateInput) (*domain.KnowledgeBaseInfo, error)
}

// IngestionStarter triggers provider-side ingestion
type IngestionStarter interface {
	StartIngestionJob(ctx context.Context, kbID, dsID string) (string, error)
}

// CreateInput describes a knowledge base to provision
type CreateInput struct {
	Name             string
	Description      string
	DataSources      []domain.DataSourceSpec
	ChunkingStrategy domain.ChunkingStrategy
	Suffix           string

	VectorCollection string
	VectorIndex      string
	RoleName         string

	// Existing holds descriptors already resolved by the reconciler, so
	// provisioning does not probe them twice
	Existing map[domain.ResourceKind]*domain.ResourceDescriptor
}

// NewCreateInput derives the creation request from a create-mode plan
func NewCreateInput(plan domain.Plan, rec *Reconciliation) CreateInput {
	in := CreateInput{
		Name:             plan.Names.KnowledgeBase,
		Description:      plan.KnowledgeBaseDescription,
		DataSources:      plan.DataSourceSpecs(),
		ChunkingStrategy: plan.ChunkingStrategy,
		Suffix:           plan.Suffix,
		VectorCollection: plan.Names.VectorCollection,
		VectorIndex:      plan.Names.VectorIndex,
		RoleName:         plan.Names.Role,
	}
	if rec != nil {
		in.Existing = rec.Existing()
	}
	return in
}

func (in CreateInput) validate() error {
	switch {
	case in.Name == "":
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message, fmt.Errorf("knowledge base name"))
	case len(in.DataSources) == 0:
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message, fmt.Errorf("data sources"))
	case in.VectorCollection == "" || in.VectorIndex == "" || in.RoleName == "":
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message, fmt.Errorf("collection, index and role names"))
	}
	return nil
}

// KnowledgeBaseService turns reconciled descriptors into a queryable handle
type KnowledgeBaseService struct {
	provisioner KnowledgeBaseProvisioner
	ingestion   IngestionStarter
	logger      *zap.Logger
}

// NewKnowledgeBaseService creates a new KnowledgeBaseService instance
func NewKnowledgeBaseService(provisioner KnowledgeBaseProvisioner, ingestion IngestionStarter, logger *zap.Logger) *KnowledgeBaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBaseService{
		provisioner: provisioner,
		ingestion:   ingestion,
		logger:      logger,
	}
}

// Adopt wraps an existing knowledge base. It makes no provider calls.
func (s *KnowledgeBaseService) Adopt(desc *domain.ResourceDescriptor) (*domain.KnowledgeBaseHandle, error) {
	if desc == nil || desc.Kind != domain.ResourceKindKnowledgeBase {
		return nil, domain.ErrInvalidResourceKind
	}
	if !desc.Found() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, domain.ErrKnowledgeBaseNotFound.Message,
			fmt.Errorf("knowledge base %q", desc.Name))
	}
	kb, ok := desc.Payload.(*domain.KnowledgeBaseInfo)
	if !ok || kb == nil {
		return nil, domain.ErrFabricatedDescriptor
	}

	handle := domain.NewAdoptedHandle(kb)
	s.logger.Info("using existing knowledge base",
		zap.String("knowledge_base_id", handle.ID),
		zap.String("name", handle.Name),
		zap.Int("data_sources", len(handle.DataSources)),
	)
	return handle, nil
}

// Create provisions a new knowledge base. The returned handle is not
// queryable until StartIngestion has been called.
func (s *KnowledgeBaseService) Create(ctx context.Context, in CreateInput) (*domain.KnowledgeBaseHandle, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	s.logger.Info("creating knowledge base",
		zap.String("name", in.Name),
		zap.String("suffix", in.Suffix),
		zap.String("chunking_strategy", string(in.ChunkingStrategy)),
	)
	kb, err := s.provisioner.Provision(ctx, in)
	if err != nil {
		return nil, err
	}
	return domain.NewCreatedHandle(kb), nil
}

// StartIngestion starts one ingestion job per data source and returns the
// job ids. Completion is not awaited.
func (s *KnowledgeBaseService) StartIngestion(ctx context.Context, handle *domain.KnowledgeBaseHandle) ([]string, error) {
	if handle == nil || handle.ID == "" {
		return nil, domain.ErrMissingKnowledgeBase
	}
	if handle.Adopted() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrProvenanceUnsupported.Message,
			fmt.Errorf("ingestion is only started for created knowledge bases"))
	}

	ctx, span := telemetry.StartSpan(ctx, "ingestion.start", telemetry.SpanAttributes{
		ResourceKind:    string(domain.ResourceKindDataSource),
		KnowledgeBaseID: handle.ID,
		Operation:       "start_ingestion",
	})
	defer span.End()

	jobs := make([]string, 0, len(handle.DataSources))
	for _, ds := range handle.DataSources {
		jobID, err := s.ingestion.StartIngestionJob(ctx, handle.ID, ds.ID)
		if err != nil {
			span.SetError(err)
			return jobs, err
		}
		s.logger.Info("started ingestion job",
			zap.String("knowledge_base_id", handle.ID),
			zap.String("data_source_id", ds.ID),
			zap.String("ingestion_job_id", jobID),
		)
		jobs = append(jobs, jobID)
	}
	return jobs, nil
}
