package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v2/signer/awsv2"
)

// Field names the knowledge base maps its vectors, text and metadata to
const (
	VectorField   = "vector"
	TextField     = "text"
	MetadataField = "text-metadata"

	// DefaultDimension matches amazon.titan-embed-text-v2:0
	DefaultDimension = 1024
)

// IndexSpec describes the vector index inside a collection
type IndexSpec struct {
	Name      string
	Dimension int
}

// IndexClient creates indexes through the collection endpoint
type IndexClient struct {
	client *opensearch.Client
}

// NewIndexClient creates an IndexClient that signs requests for OpenSearch Serverless
func NewIndexClient(awsCfg aws.Config, endpoint string) (*IndexClient, error) {
	signer, err := requestsigner.NewSignerWithService(awsCfg, "aoss")
	if err != nil {
		return nil, fmt.Errorf("failed to create request signer: %w", err)
	}
	return NewIndexClientWithConfig(opensearch.Config{
		Addresses: []string{endpoint},
		Signer:    signer,
	})
}

// NewIndexClientWithConfig creates an IndexClient with an explicit transport config
func NewIndexClientWithConfig(cfg opensearch.Config) (*IndexClient, error) {
	client, err := opensearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return &IndexClient{client: client}, nil
}

// CreateVectorIndex creates a faiss HNSW knn index. An index that already
// exists is left untouched.
func (c *IndexClient) CreateVectorIndex(ctx context.Context, spec IndexSpec) error {
	body, err := vectorIndexBody(spec)
	if err != nil {
		return err
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: spec.Name,
		Body:  strings.NewReader(body),
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeTransientProvider, "failed to create vector index", err)
	}
	defer res.Body.Close()

	if !res.IsError() {
		return nil
	}

	msg, _ := io.ReadAll(res.Body)
	if strings.Contains(string(msg), "resource_already_exists_exception") {
		return nil
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "failed to create vector index",
		fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(msg))))
}

func vectorIndexBody(spec IndexSpec) (string, error) {
	dim := spec.Dimension
	if dim <= 0 {
		dim = DefaultDimension
	}

	body := map[string]any{
		"settings": map[string]any{
			"index.knn":                "true",
			"number_of_shards":         1,
			"knn.algo_param.ef_search": 512,
			"number_of_replicas":       0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				VectorField: map[string]any{
					"type":      "knn_vector",
					"dimension": dim,
					"method": map[string]any{
						"name":       "hnsw",
						"engine":     "faiss",
						"space_type": "l2",
					},
				},
				TextField:     map[string]any{"type": "text"},
				MetadataField: map[string]any{"type": "text", "index": false},
			},
		},
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode index body: %w", err)
	}
	return string(b), nil
}
