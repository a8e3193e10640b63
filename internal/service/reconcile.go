package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"go.uber.org/zap"
)

// ResourceProber is what the reconciler needs from a Prober
type ResourceProber interface {
	Probe(ctx context.Context, kind domain.ResourceKind, name string) (*domain.ResourceDescriptor, error)
}

// Reconciler combines probe results with the run's plan
type Reconciler struct {
	plan   domain.Plan
	prober ResourceProber
	logger *zap.Logger
}

// NewReconciler creates a new Reconciler instance
func NewReconciler(plan domain.Plan, prober ResourceProber, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{plan: plan, prober: prober, logger: logger}
}

// Plan returns the plan the reconciler was built with
func (r *Reconciler) Plan() domain.Plan {
	return r.plan
}

// Reconcile resolves one resource kind against the plan.
//
// Adopt: the resource must exist; a NotFound probe is returned as a NOT_FOUND
// error and nothing is created in its place.
// Create: an existing resource is returned as-is for reuse, a missing one as
// a NotFound descriptor for the adapter to create. A knowledge base that
// already carries the freshly generated name is rejected.
func (r *Reconciler) Reconcile(ctx context.Context, kind domain.ResourceKind) (*domain.ResourceDescriptor, error) {
	policy := r.plan.Policy(kind)
	if policy.Name == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message,
			fmt.Errorf("no %s name for %s mode", kind, r.plan.Mode))
	}

	desc, err := r.prober.Probe(ctx, kind, policy.Name)
	if err != nil {
		return nil, err
	}

	switch policy.Action {
	case domain.ActionAdopt:
		if !desc.Found() {
			r.logger.Warn("resource to adopt does not exist",
				zap.String("kind", string(kind)),
				zap.String("name", policy.Name),
			)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, domain.NotFoundFor(kind).Message,
				fmt.Errorf("%s %q", kind, policy.Name))
		}
	case domain.ActionCreate:
		if desc.Found() && kind == domain.ResourceKindKnowledgeBase {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrKnowledgeBaseExists.Message,
				fmt.Errorf("knowledge base %q", policy.Name))
		}
		if desc.Found() {
			r.logger.Info("reusing existing resource",
				zap.String("kind", string(kind)),
				zap.String("name", policy.Name),
			)
		}
	}
	return desc, nil
}

// Reconciliation holds the resolved descriptors of one run. Bucket and
// VectorCollection are nil in adopt mode when no name was configured for them.
type Reconciliation struct {
	Bucket           *domain.ResourceDescriptor
	VectorCollection *domain.ResourceDescriptor
	KnowledgeBase    *domain.ResourceDescriptor
}

// Existing returns the descriptors keyed by kind, skipping unresolved ones
func (r *Reconciliation) Existing() map[domain.ResourceKind]*domain.ResourceDescriptor {
	existing := make(map[domain.ResourceKind]*domain.ResourceDescriptor, 3)
	if r.Bucket != nil {
		existing[domain.ResourceKindBucket] = r.Bucket
	}
	if r.VectorCollection != nil {
		existing[domain.ResourceKindVectorCollection] = r.VectorCollection
	}
	if r.KnowledgeBase != nil {
		existing[domain.ResourceKindKnowledgeBase] = r.KnowledgeBase
	}
	return existing
}

// ReconcileAll resolves bucket, vector collection and knowledge base in that
// order, one after another. In adopt mode the bucket and collection are only
// checked when a name is configured for them.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*Reconciliation, error) {
	var (
		result Reconciliation
		err    error
	)

	if r.plan.Mode == domain.ModeCreate || r.plan.Names.Bucket != "" {
		if result.Bucket, err = r.Reconcile(ctx, domain.ResourceKindBucket); err != nil {
			return nil, err
		}
	}
	if r.plan.Mode == domain.ModeCreate || r.plan.Names.VectorCollection != "" {
		if result.VectorCollection, err = r.Reconcile(ctx, domain.ResourceKindVectorCollection); err != nil {
			return nil, err
		}
	}
	if result.KnowledgeBase, err = r.Reconcile(ctx, domain.ResourceKindKnowledgeBase); err != nil {
		return nil, err
	}
	return &result, nil
}
