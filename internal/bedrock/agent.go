// Package bedrock adapts the Bedrock Agent and Agent Runtime APIs to the
// knowledge base domain types.
package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/cloo-solutions/kbstrap/internal/awsutil"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/google/uuid"
)

// DefaultPageLimit is the page size used for list calls
const DefaultPageLimit int32 = 100

// AgentAPI is the subset of the Bedrock Agent client used here
type AgentAPI interface {
	ListKnowledgeBases(ctx context.Context, params *bedrockagent.ListKnowledgeBasesInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListKnowledgeBasesOutput, error)
	GetKnowledgeBase(ctx context.Context, params *bedrockagent.GetKnowledgeBaseInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetKnowledgeBaseOutput, error)
	ListDataSources(ctx context.Context, params *bedrockagent.ListDataSourcesInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListDataSourcesOutput, error)
	GetDataSource(ctx context.Context, params *bedrockagent.GetDataSourceInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetDataSourceOutput, error)
	CreateKnowledgeBase(ctx context.Context, params *bedrockagent.CreateKnowledgeBaseInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateKnowledgeBaseOutput, error)
	CreateDataSource(ctx context.Context, params *bedrockagent.CreateDataSourceInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateDataSourceOutput, error)
	StartIngestionJob(ctx context.Context, params *bedrockagent.StartIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error)
}

// KnowledgeBaseSummary is one entry of a knowledge base listing
type KnowledgeBaseSummary struct {
	ID     string
	Name   string
	Status string
}

// AgentClient wraps the Bedrock Agent API
type AgentClient struct {
	api       AgentAPI
	pageLimit int32
}

// NewAgentClient creates an AgentClient from a resolved AWS config
func NewAgentClient(awsCfg aws.Config) *AgentClient {
	return NewAgentClientWithAPI(bedrockagent.NewFromConfig(awsCfg))
}

// NewAgentClientWithAPI wraps an existing API implementation
func NewAgentClientWithAPI(api AgentAPI) *AgentClient {
	return &AgentClient{api: api, pageLimit: DefaultPageLimit}
}

// ListKnowledgeBases returns every knowledge base visible to the caller, in provider order
func (c *AgentClient) ListKnowledgeBases(ctx context.Context) ([]KnowledgeBaseSummary, error) {
	var (
		summaries []KnowledgeBaseSummary
		token     *string
	)
	for {
		out, err := c.api.ListKnowledgeBases(ctx, &bedrockagent.ListKnowledgeBasesInput{
			MaxResults: aws.Int32(c.pageLimit),
			NextToken:  token,
		})
		if err != nil {
			return nil, awsutil.Classify("failed to list knowledge bases", err)
		}
		for _, s := range out.KnowledgeBaseSummaries {
			summaries = append(summaries, KnowledgeBaseSummary{
				ID:     aws.ToString(s.KnowledgeBaseId),
				Name:   aws.ToString(s.Name),
				Status: string(s.Status),
			})
		}
		if aws.ToString(out.NextToken) == "" {
			return summaries, nil
		}
		token = out.NextToken
	}
}

// GetKnowledgeBase fetches the full knowledge base record, without data sources
func (c *AgentClient) GetKnowledgeBase(ctx context.Context, id string) (*domain.KnowledgeBaseInfo, error) {
	out, err := c.api.GetKnowledgeBase(ctx, &bedrockagent.GetKnowledgeBaseInput{
		KnowledgeBaseId: aws.String(id),
	})
	if err != nil {
		return nil, awsutil.Classify("failed to get knowledge base", err)
	}
	return knowledgeBaseInfo("get knowledge base", out.KnowledgeBase)
}

// ListDataSources returns the data source ids registered on a knowledge base
func (c *AgentClient) ListDataSources(ctx context.Context, kbID string) ([]string, error) {
	var (
		ids   []string
		token *string
	)
	for {
		out, err := c.api.ListDataSources(ctx, &bedrockagent.ListDataSourcesInput{
			KnowledgeBaseId: aws.String(kbID),
			MaxResults:      aws.Int32(c.pageLimit),
			NextToken:       token,
		})
		if err != nil {
			return nil, awsutil.Classify("failed to list data sources", err)
		}
		for _, s := range out.DataSourceSummaries {
			ids = append(ids, aws.ToString(s.DataSourceId))
		}
		if aws.ToString(out.NextToken) == "" {
			return ids, nil
		}
		token = out.NextToken
	}
}

// GetDataSource fetches one data source
func (c *AgentClient) GetDataSource(ctx context.Context, kbID, dsID string) (*domain.DataSourceDescriptor, error) {
	out, err := c.api.GetDataSource(ctx, &bedrockagent.GetDataSourceInput{
		KnowledgeBaseId: aws.String(kbID),
		DataSourceId:    aws.String(dsID),
	})
	if err != nil {
		return nil, awsutil.Classify("failed to get data source", err)
	}
	if out.DataSource == nil {
		return nil, emptyResponse("get data source")
	}
	ds := dataSourceDescriptor(out.DataSource)
	return &ds, nil
}

// CreateKnowledgeBaseInput describes a vector knowledge base backed by an
// OpenSearch Serverless index
type CreateKnowledgeBaseInput struct {
	Name              string
	Description       string
	RoleARN           string
	EmbeddingModelARN string
	CollectionARN     string
	IndexName         string
	VectorField       string
	TextField         string
	MetadataField     string
}

// CreateKnowledgeBase registers a new knowledge base
func (c *AgentClient) CreateKnowledgeBase(ctx context.Context, in CreateKnowledgeBaseInput) (*domain.KnowledgeBaseInfo, error) {
	out, err := c.api.CreateKnowledgeBase(ctx, &bedrockagent.CreateKnowledgeBaseInput{
		Name:        aws.String(in.Name),
		Description: aws.String(in.Description),
		RoleArn:     aws.String(in.RoleARN),
		ClientToken: aws.String(uuid.NewString()),
		KnowledgeBaseConfiguration: &types.KnowledgeBaseConfiguration{
			Type: types.KnowledgeBaseTypeVector,
			VectorKnowledgeBaseConfiguration: &types.VectorKnowledgeBaseConfiguration{
				EmbeddingModelArn: aws.String(in.EmbeddingModelARN),
			},
		},
		StorageConfiguration: &types.StorageConfiguration{
			Type: types.KnowledgeBaseStorageTypeOpensearchServerless,
			OpensearchServerlessConfiguration: &types.OpenSearchServerlessConfiguration{
				CollectionArn:   aws.String(in.CollectionARN),
				VectorIndexName: aws.String(in.IndexName),
				FieldMapping: &types.OpenSearchServerlessFieldMapping{
					VectorField:   aws.String(in.VectorField),
					TextField:     aws.String(in.TextField),
					MetadataField: aws.String(in.MetadataField),
				},
			},
		},
	})
	if err != nil {
		return nil, awsutil.Classify("failed to create knowledge base", err)
	}
	return knowledgeBaseInfo("create knowledge base", out.KnowledgeBase)
}

// CreateDataSourceInput describes an S3 data source
type CreateDataSourceInput struct {
	KnowledgeBaseID  string
	Name             string
	BucketARN        string
	ChunkingStrategy domain.ChunkingStrategy
}

// Fixed-size chunking parameters used for FIXED_SIZE data sources
const (
	FixedSizeMaxTokens         int32 = 512
	FixedSizeOverlapPercentage int32 = 20
)

// CreateDataSource registers an S3 data source on a knowledge base
func (c *AgentClient) CreateDataSource(ctx context.Context, in CreateDataSourceInput) (*domain.DataSourceDescriptor, error) {
	out, err := c.api.CreateDataSource(ctx, &bedrockagent.CreateDataSourceInput{
		KnowledgeBaseId: aws.String(in.KnowledgeBaseID),
		Name:            aws.String(in.Name),
		ClientToken:     aws.String(uuid.NewString()),
		DataSourceConfiguration: &types.DataSourceConfiguration{
			Type: types.DataSourceTypeS3,
			S3Configuration: &types.S3DataSourceConfiguration{
				BucketArn: aws.String(in.BucketARN),
			},
		},
		VectorIngestionConfiguration: &types.VectorIngestionConfiguration{
			ChunkingConfiguration: chunkingConfiguration(in.ChunkingStrategy),
		},
	})
	if err != nil {
		return nil, awsutil.Classify("failed to create data source", err)
	}
	if out.DataSource == nil {
		return nil, emptyResponse("create data source")
	}
	ds := dataSourceDescriptor(out.DataSource)
	return &ds, nil
}

// StartIngestionJob kicks off ingestion for one data source and returns the job id
func (c *AgentClient) StartIngestionJob(ctx context.Context, kbID, dsID string) (string, error) {
	out, err := c.api.StartIngestionJob(ctx, &bedrockagent.StartIngestionJobInput{
		KnowledgeBaseId: aws.String(kbID),
		DataSourceId:    aws.String(dsID),
		ClientToken:     aws.String(uuid.NewString()),
	})
	if err != nil {
		return "", awsutil.Classify("failed to start ingestion job", err)
	}
	if out.IngestionJob == nil {
		return "", nil
	}
	return aws.ToString(out.IngestionJob.IngestionJobId), nil
}

func chunkingConfiguration(strategy domain.ChunkingStrategy) *types.ChunkingConfiguration {
	switch strategy {
	case domain.ChunkingStrategyNone:
		return &types.ChunkingConfiguration{ChunkingStrategy: types.ChunkingStrategyNone}
	case domain.ChunkingStrategyDefault:
		return nil
	default:
		return &types.ChunkingConfiguration{
			ChunkingStrategy: types.ChunkingStrategyFixedSize,
			FixedSizeChunkingConfiguration: &types.FixedSizeChunkingConfiguration{
				MaxTokens:         aws.Int32(FixedSizeMaxTokens),
				OverlapPercentage: aws.Int32(FixedSizeOverlapPercentage),
			},
		}
	}
}

func emptyResponse(op string) error {
	return domain.NewDomainError(domain.ErrCodeProvider, op+" returned an empty response")
}

func knowledgeBaseInfo(op string, kb *types.KnowledgeBase) (*domain.KnowledgeBaseInfo, error) {
	if kb == nil {
		return nil, emptyResponse(op)
	}
	return &domain.KnowledgeBaseInfo{
		ID:          aws.ToString(kb.KnowledgeBaseId),
		ARN:         aws.ToString(kb.KnowledgeBaseArn),
		Name:        aws.ToString(kb.Name),
		Description: aws.ToString(kb.Description),
		RoleARN:     aws.ToString(kb.RoleArn),
		Status:      string(kb.Status),
	}, nil
}

func dataSourceDescriptor(ds *types.DataSource) domain.DataSourceDescriptor {
	if ds == nil {
		return domain.DataSourceDescriptor{}
	}
	d := domain.DataSourceDescriptor{
		ID:              aws.ToString(ds.DataSourceId),
		KnowledgeBaseID: aws.ToString(ds.KnowledgeBaseId),
		Name:            aws.ToString(ds.Name),
		Status:          string(ds.Status),
	}
	if cfg := ds.DataSourceConfiguration; cfg != nil {
		d.Kind = domain.DataSourceKind(cfg.Type)
		if s3 := cfg.S3Configuration; s3 != nil {
			d.Location = aws.ToString(s3.BucketArn)
			d.InclusionPrefixes = s3.InclusionPrefixes
		}
	}
	return d
}
