package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/kbstrap/internal/bedrock"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/telemetry"
	"go.uber.org/zap"
)

// BucketProber heads a bucket without reading its contents. A missing bucket
// is a nil info with a nil error.
type BucketProber interface {
	HeadBucket(ctx context.Context, bucket string) (*domain.BucketInfo, error)
}

// CollectionDescriber looks up vector collections by name
type CollectionDescriber interface {
	BatchDescribe(ctx context.Context, names []string) ([]domain.CollectionInfo, error)
}

// KnowledgeBaseReader is the read side of the knowledge base service
type KnowledgeBaseReader interface {
	ListKnowledgeBases(ctx context.Context) ([]bedrock.KnowledgeBaseSummary, error)
	GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBaseInfo, error)
	ListDataSources(ctx context.Context, kbID string) ([]string, error)
	GetDataSource(ctx context.Context, kbID, dsID string) (*domain.DataSourceDescriptor, error)
}

// Prober reports whether managed resources exist. It never mutates anything.
type Prober struct {
	buckets     BucketProber
	collections CollectionDescriber
	kbs         KnowledgeBaseReader
	logger      *zap.Logger
}

// NewProber creates a new Prober instance
func NewProber(buckets BucketProber, collections CollectionDescriber, kbs KnowledgeBaseReader, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		buckets:     buckets,
		collections: collections,
		kbs:         kbs,
		logger:      logger,
	}
}

// Probe looks a resource up by name. Absence is a NotFound descriptor with a
// nil error; only transport and auth failures are returned as errors.
// Data sources are named "<knowledgeBaseID>/<dataSourceID>".
func (p *Prober) Probe(ctx context.Context, kind domain.ResourceKind, name string) (*domain.ResourceDescriptor, error) {
	if name == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message,
			fmt.Errorf("%s name", kind))
	}

	ctx, span := telemetry.StartSpan(ctx, "probe."+string(kind), telemetry.SpanAttributes{
		ResourceKind: string(kind),
		ResourceName: name,
		Operation:    "probe",
	})
	defer span.End()

	var (
		desc *domain.ResourceDescriptor
		err  error
	)
	switch kind {
	case domain.ResourceKindBucket:
		desc, err = p.probeBucket(ctx, name)
	case domain.ResourceKindVectorCollection:
		desc, err = p.probeCollection(ctx, name)
	case domain.ResourceKindKnowledgeBase:
		desc, err = p.probeKnowledgeBase(ctx, name)
	case domain.ResourceKindDataSource:
		desc, err = p.probeDataSource(ctx, name)
	default:
		err = domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidResourceKind.Message,
			fmt.Errorf("kind %q", kind))
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	p.logger.Info("probed resource",
		zap.String("kind", string(kind)),
		zap.String("name", name),
		zap.String("existence", string(desc.Existence)),
	)
	return desc, nil
}

func (p *Prober) probeBucket(ctx context.Context, name string) (*domain.ResourceDescriptor, error) {
	info, err := p.buckets.HeadBucket(ctx, name)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return domain.NewNotFoundDescriptor(domain.ResourceKindBucket, name), nil
	}
	return domain.NewFoundDescriptor(domain.ResourceKindBucket, name, name, info)
}

func (p *Prober) probeCollection(ctx context.Context, name string) (*domain.ResourceDescriptor, error) {
	infos, err := p.collections.BatchDescribe(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return domain.NewNotFoundDescriptor(domain.ResourceKindVectorCollection, name), nil
	}
	info := infos[0]
	return domain.NewFoundDescriptor(domain.ResourceKindVectorCollection, name, info.ID, &info)
}

// probeKnowledgeBase takes the first summary whose name matches. Names are
// not unique on the provider side.
func (p *Prober) probeKnowledgeBase(ctx context.Context, name string) (*domain.ResourceDescriptor, error) {
	summaries, err := p.kbs.ListKnowledgeBases(ctx)
	if err != nil {
		return nil, err
	}

	var id string
	for _, s := range summaries {
		if s.Name == name {
			id = s.ID
			break
		}
	}
	if id == "" {
		return domain.NewNotFoundDescriptor(domain.ResourceKindKnowledgeBase, name), nil
	}

	kb, err := p.kbs.GetKnowledgeBase(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewNotFoundDescriptor(domain.ResourceKindKnowledgeBase, name), nil
		}
		return nil, err
	}

	dsIDs, err := p.kbs.ListDataSources(ctx, id)
	if err != nil {
		return nil, err
	}
	kb.DataSources = make([]domain.DataSourceDescriptor, 0, len(dsIDs))
	for _, dsID := range dsIDs {
		ds, err := p.kbs.GetDataSource(ctx, id, dsID)
		if err != nil {
			return nil, err
		}
		kb.DataSources = append(kb.DataSources, *ds)
	}

	return domain.NewFoundDescriptor(domain.ResourceKindKnowledgeBase, name, id, kb)
}

func (p *Prober) probeDataSource(ctx context.Context, name string) (*domain.ResourceDescriptor, error) {
	kbID, dsID, ok := strings.Cut(name, "/")
	if !ok || kbID == "" || dsID == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message,
			fmt.Errorf("data source name %q, expected <knowledgeBaseID>/<dataSourceID>", name))
	}

	ds, err := p.kbs.GetDataSource(ctx, kbID, dsID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewNotFoundDescriptor(domain.ResourceKindDataSource, name), nil
		}
		return nil, err
	}
	return domain.NewFoundDescriptor(domain.ResourceKindDataSource, name, ds.ID, ds)
}
