package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/telemetry"
	"go.uber.org/zap"
)

// BootstrapConfig controls the create path's upload step
type BootstrapConfig struct {
	DataDir string
	// DataDirOptional downgrades a missing DataDir from a fatal error to a
	// warning, skipping the upload
	DataDirOptional bool
}

// BootstrapResult is everything resolved before queries can run
type BootstrapResult struct {
	Handle         *domain.KnowledgeBaseHandle
	Reconciliation *Reconciliation
	Upload         *UploadReport
	IngestionJobs  []string
}

// Bootstrapper resolves a queryable knowledge base for the run's plan
type Bootstrapper struct {
	reconciler *Reconciler
	kbs        *KnowledgeBaseService
	uploader   *Uploader
	cfg        BootstrapConfig
	logger     *zap.Logger
}

// NewBootstrapper creates a new Bootstrapper instance
func NewBootstrapper(reconciler *Reconciler, kbs *KnowledgeBaseService, uploader *Uploader, cfg BootstrapConfig, logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{
		reconciler: reconciler,
		kbs:        kbs,
		uploader:   uploader,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run reconciles every resource, then adopts or creates the knowledge base.
// On the create path the data directory is uploaded and ingestion started.
// Any error aborts startup.
func (b *Bootstrapper) Run(ctx context.Context) (*BootstrapResult, error) {
	plan := b.reconciler.Plan()

	ctx, span := telemetry.StartTransaction(ctx, "kbstrap.bootstrap", string(plan.Mode))
	defer span.End()

	result, err := b.run(ctx, plan)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return result, nil
}

func (b *Bootstrapper) run(ctx context.Context, plan domain.Plan) (*BootstrapResult, error) {
	var uploadData bool
	if plan.Mode == domain.ModeCreate {
		ok, err := b.checkDataDir()
		if err != nil {
			return nil, err
		}
		uploadData = ok
	}

	b.logger.Info("reconciling resources",
		zap.String("mode", string(plan.Mode)),
		zap.String("knowledge_base", plan.Names.KnowledgeBase),
		zap.String("bucket", plan.Names.Bucket),
		zap.String("vector_collection", plan.Names.VectorCollection),
	)

	rec, err := b.reconciler.ReconcileAll(ctx)
	if err != nil {
		return nil, err
	}
	result := &BootstrapResult{Reconciliation: rec}

	if plan.Mode == domain.ModeAdopt {
		result.Handle, err = b.kbs.Adopt(rec.KnowledgeBase)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	result.Handle, err = b.kbs.Create(ctx, NewCreateInput(plan, rec))
	if err != nil {
		return nil, err
	}

	if uploadData {
		report, err := b.uploader.UploadTree(ctx, b.cfg.DataDir, plan.Names.Bucket)
		if err != nil {
			return nil, err
		}
		result.Upload = &report
	}

	b.logger.Info("starting ingestion", zap.String("knowledge_base_id", result.Handle.ID))
	result.IngestionJobs, err = b.kbs.StartIngestion(ctx, result.Handle)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkDataDir must run before any provider call on the create path.
// It reports whether there is a directory to upload.
func (b *Bootstrapper) checkDataDir() (bool, error) {
	info, err := os.Stat(b.cfg.DataDir)
	if err == nil && info.IsDir() {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) && b.cfg.DataDirOptional {
		b.logger.Warn("data directory does not exist, skipping upload", zap.String("dir", b.cfg.DataDir))
		return false, nil
	}
	if err == nil {
		err = fmt.Errorf("%s is not a directory", b.cfg.DataDir)
	}
	return false, domain.NewDomainErrorWithCause(domain.ErrCodeFatalSetup, domain.ErrDataDirMissing.Message, err)
}
