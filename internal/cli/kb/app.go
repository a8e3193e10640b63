package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/kbstrap/internal/awsutil"
	"github.com/cloo-solutions/kbstrap/internal/bedrock"
	"github.com/cloo-solutions/kbstrap/internal/config"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/identity"
	"github.com/cloo-solutions/kbstrap/internal/logging"
	"github.com/cloo-solutions/kbstrap/internal/service"
	"github.com/cloo-solutions/kbstrap/internal/storage"
	"github.com/cloo-solutions/kbstrap/internal/telemetry"
	"github.com/cloo-solutions/kbstrap/internal/vectorstore"
	"go.uber.org/zap"
)

// app holds the clients and services shared by the commands
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	plan   domain.Plan
	region string

	identity *identity.Client
	runtime  *bedrock.RuntimeClient

	prober       *service.Prober
	bootstrapper *service.Bootstrapper

	shutdown func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	shutdown := func() { _ = logger.Sync() }
	if cfg.HasSentry() {
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}
		flush, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			shutdown = func() {
				flush()
				_ = logger.Sync()
			}
		}
	}

	plan, err := cfg.Plan(time.Now())
	if err != nil {
		shutdown()
		return nil, err
	}

	awsCfg, err := awsutil.Load(ctx, awsutil.Config{
		Region:          cfg.Region,
		Profile:         cfg.AWSProfile,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		SessionToken:    cfg.AWSSessionToken,
	})
	if err != nil {
		shutdown()
		return nil, err
	}
	region := awsCfg.Region

	s3Client := storage.NewS3Client(awsCfg, storage.S3ClientConfig{
		Endpoint:     cfg.S3Endpoint,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	collections := vectorstore.NewCollectionClient(awsCfg)
	agent := bedrock.NewAgentClient(awsCfg)
	identityClient := identity.NewClient(awsCfg)

	indexes := func(endpoint string) (service.IndexCreator, error) {
		client, err := vectorstore.NewIndexClient(awsCfg, endpoint)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	prober := service.NewProber(s3Client, collections, agent, logger)
	provisioner := service.NewProvisioner(s3Client, collections, indexes, identityClient, agent, service.ProvisionerConfig{
		Region:             region,
		EmbeddingModelARN:  awsutil.FoundationModelARN(region, cfg.EmbeddingModel),
		EmbeddingDimension: cfg.EmbeddingDimension,
	}, logger)
	kbs := service.NewKnowledgeBaseService(provisioner, agent, logger)
	bootstrapper := service.NewBootstrapper(
		service.NewReconciler(plan, prober, logger),
		kbs,
		service.NewUploader(s3Client, logger),
		service.BootstrapConfig{DataDir: cfg.DataDir, DataDirOptional: cfg.DataDirOptional},
		logger,
	)

	return &app{
		cfg:          cfg,
		logger:       logger,
		plan:         plan,
		region:       region,
		identity:     identityClient,
		runtime:      bedrock.NewRuntimeClient(awsCfg),
		prober:       prober,
		bootstrapper: bootstrapper,
		shutdown:     shutdown,
	}, nil
}

// resolveCaller logs the account in use. Failing to resolve it is fatal.
func (a *app) resolveCaller(ctx context.Context) error {
	caller, err := a.identity.CallerIdentity(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("using AWS account",
		zap.String("account", caller.Account),
		zap.String("region", a.region),
		zap.String("mode", string(a.plan.Mode)),
	)
	return nil
}

func (a *app) session(handle *domain.KnowledgeBaseHandle) service.Session {
	return service.Session{
		Handle:      handle,
		Runtime:     a.runtime,
		ModelARN:    awsutil.FoundationModelARN(a.region, a.cfg.FoundationModel),
		ResultLimit: a.cfg.ResultLimit,
	}
}

// fail logs and captures a startup error before it is returned to main
func (a *app) fail(ctx context.Context, err error) error {
	a.logger.Error("startup failed",
		zap.String("code", domain.ErrorCode(err)),
		zap.Error(err),
	)
	telemetry.CaptureError(ctx, err)
	return err
}
