package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	// Region falls back to the AWS SDK default chain (AWS_REGION, shared config) when empty
	Region             string `envconfig:"REGION"`
	AWSProfile         string `envconfig:"AWS_PROFILE"`
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	AWSSessionToken    string `envconfig:"AWS_SESSION_TOKEN"`

	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE" default:"false"`

	// Mode is "adopt" (reuse the named resources below) or "create" (generate fresh names)
	Mode string `envconfig:"MODE" default:"create"`

	KnowledgeBaseName        string `envconfig:"KNOWLEDGE_BASE_NAME"`
	KnowledgeBaseDescription string `envconfig:"KNOWLEDGE_BASE_DESCRIPTION" default:"Multi data source knowledge base."`
	BucketName               string `envconfig:"BUCKET_NAME"`
	VectorStoreName          string `envconfig:"VECTOR_STORE_NAME"`

	KnowledgeBasePrefix string `envconfig:"KNOWLEDGE_BASE_PREFIX" default:"bedrock-sample-knowledge-base"`
	BucketPrefix        string `envconfig:"BUCKET_PREFIX" default:"bedrock-kb"`
	VectorStorePrefix   string `envconfig:"VECTOR_STORE_PREFIX" default:"bedrock-sample-rag"`
	VectorIndexPrefix   string `envconfig:"VECTOR_INDEX_PREFIX" default:"bedrock-sample-rag-index"`
	RolePrefix          string `envconfig:"ROLE_PREFIX" default:"AmazonBedrockExecutionRoleForKnowledgeBase"`

	ChunkingStrategy   string `envconfig:"CHUNKING_STRATEGY" default:"FIXED_SIZE"`
	DataDir            string `envconfig:"DATA_DIR" default:"synthetic_dataset"`
	DataDirOptional    bool   `envconfig:"DATA_DIR_OPTIONAL" default:"false"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"amazon.titan-embed-text-v2:0"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"1024"`

	FoundationModel string `envconfig:"FOUNDATION_MODEL" default:"amazon.nova-micro-v1:0"`
	ResultLimit     int    `envconfig:"RESULT_LIMIT" default:"5"`
	DemoQuery       string `envconfig:"DEMO_QUERY" default:"How many new positions were opened across Amazon's fulfillment and delivery network?"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// Prefix is prepended to every variable name
const Prefix = "KBSTRAP"

// Variable documents one environment variable
type Variable struct {
	Name    string `json:"name"`
	Default string `json:"default,omitempty"`
}

// Variables lists the environment variables Load reads, in declaration order
func Variables() []Variable {
	t := reflect.TypeOf(Config{})
	vars := make([]Variable, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("envconfig")
		if key == "" {
			continue
		}
		vars = append(vars, Variable{
			Name:    Prefix + "_" + key,
			Default: f.Tag.Get("default"),
		})
	}
	return vars
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) NamePrefixes() domain.NamePrefixes {
	defaults := domain.DefaultNamePrefixes()
	return domain.NamePrefixes{
		KnowledgeBase:    orDefault(c.KnowledgeBasePrefix, defaults.KnowledgeBase),
		Bucket:           orDefault(c.BucketPrefix, defaults.Bucket),
		VectorCollection: orDefault(c.VectorStorePrefix, defaults.VectorCollection),
		VectorIndex:      orDefault(c.VectorIndexPrefix, defaults.VectorIndex),
		Role:             orDefault(c.RolePrefix, defaults.Role),
	}
}

// Plan builds the reconciliation policy for this run. It is evaluated once;
// now only matters in create mode.
func (c *Config) Plan(now time.Time) (domain.Plan, error) {
	var plan domain.Plan

	switch domain.Mode(c.Mode) {
	case domain.ModeAdopt:
		plan = domain.NewAdoptPlan(domain.NameSet{
			KnowledgeBase:    c.KnowledgeBaseName,
			Bucket:           c.BucketName,
			VectorCollection: c.VectorStoreName,
		}, c.KnowledgeBaseDescription)
	case domain.ModeCreate:
		plan = domain.NewCreatePlan(c.NamePrefixes(), now, c.KnowledgeBaseDescription, domain.ChunkingStrategy(c.ChunkingStrategy))
	default:
		return domain.Plan{}, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidMode.Message,
			fmt.Errorf("KBSTRAP_MODE=%q, expected adopt or create", c.Mode))
	}

	if err := plan.Validate(); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
