package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/cloo-solutions/kbstrap/internal/domain"
)

// RuntimeAPI is the subset of the Bedrock Agent Runtime client used here
type RuntimeAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// RuntimeClient wraps the Bedrock Agent Runtime API
type RuntimeClient struct {
	api RuntimeAPI
}

// NewRuntimeClient creates a RuntimeClient from a resolved AWS config
func NewRuntimeClient(awsCfg aws.Config) *RuntimeClient {
	return NewRuntimeClientWithAPI(bedrockagentruntime.NewFromConfig(awsCfg))
}

// NewRuntimeClientWithAPI wraps an existing API implementation
func NewRuntimeClientWithAPI(api RuntimeAPI) *RuntimeClient {
	return &RuntimeClient{api: api}
}

// RetrieveAndGenerate answers a question from the knowledge base with the given model.
// Errors are returned as the provider reported them.
func (c *RuntimeClient) RetrieveAndGenerate(ctx context.Context, question, kbID, modelARN string, limit int) (*domain.GeneratedAnswer, error) {
	out, err := c.api.RetrieveAndGenerate(ctx, &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{
			Text: aws.String(question),
		},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId:        aws.String(kbID),
				ModelArn:               aws.String(modelARN),
				RetrievalConfiguration: retrievalConfiguration(limit),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	answer := &domain.GeneratedAnswer{
		SessionID: aws.ToString(out.SessionId),
	}
	if out.Output != nil {
		answer.Text = aws.ToString(out.Output.Text)
	}
	for _, citation := range out.Citations {
		for _, ref := range citation.RetrievedReferences {
			if loc := chunkLocation(ref.Location); loc.URI != "" {
				answer.Citations = append(answer.Citations, loc.URI)
			}
		}
	}
	return answer, nil
}

// Retrieve returns ranked chunks for a question, in provider order
func (c *RuntimeClient) Retrieve(ctx context.Context, question, kbID string, limit int) ([]domain.RetrievedChunk, error) {
	out, err := c.api.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(kbID),
		RetrievalQuery: &types.KnowledgeBaseQuery{
			Text: aws.String(question),
		},
		RetrievalConfiguration: retrievalConfiguration(limit),
	})
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.RetrievedChunk, 0, len(out.RetrievalResults))
	for _, r := range out.RetrievalResults {
		chunk := domain.RetrievedChunk{
			Location: chunkLocation(r.Location),
			Score:    aws.ToFloat64(r.Score),
			Metadata: metadataMap(r.Metadata),
		}
		if r.Content != nil {
			chunk.Content = aws.ToString(r.Content.Text)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func retrievalConfiguration(limit int) *types.KnowledgeBaseRetrievalConfiguration {
	if limit <= 0 {
		limit = domain.DefaultResultLimit
	}
	return &types.KnowledgeBaseRetrievalConfiguration{
		VectorSearchConfiguration: &types.KnowledgeBaseVectorSearchConfiguration{
			NumberOfResults: aws.Int32(int32(limit)),
		},
	}
}

func chunkLocation(loc *types.RetrievalResultLocation) domain.ChunkLocation {
	if loc == nil {
		return domain.ChunkLocation{}
	}
	out := domain.ChunkLocation{Type: string(loc.Type)}
	switch {
	case loc.S3Location != nil:
		out.URI = aws.ToString(loc.S3Location.Uri)
	case loc.WebLocation != nil:
		out.URI = aws.ToString(loc.WebLocation.Url)
	}
	return out
}

// metadataMap decodes each metadata value. A value that does not decode is
// kept as the raw document.
func metadataMap(md map[string]document.Interface) map[string]any {
	out := make(map[string]any, len(md))
	for k, doc := range md {
		if doc == nil {
			out[k] = nil
			continue
		}
		var v any
		if err := doc.UnmarshalSmithyDocument(&v); err != nil {
			out[k] = doc
			continue
		}
		out[k] = v
	}
	return out
}
