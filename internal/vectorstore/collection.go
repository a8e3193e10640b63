// Package vectorstore manages OpenSearch Serverless vector collections and
// the vector index a knowledge base writes into.
package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/cloo-solutions/kbstrap/internal/awsutil"
	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultMaxPolls     = 40
	maxPolicyNameLength = 32
)

var errCollectionPending = errors.New("collection is not active yet")

// CollectionAPI is the subset of the OpenSearch Serverless client used here
type CollectionAPI interface {
	BatchGetCollection(ctx context.Context, params *opensearchserverless.BatchGetCollectionInput, optFns ...func(*opensearchserverless.Options)) (*opensearchserverless.BatchGetCollectionOutput, error)
	CreateSecurityPolicy(ctx context.Context, params *opensearchserverless.CreateSecurityPolicyInput, optFns ...func(*opensearchserverless.Options)) (*opensearchserverless.CreateSecurityPolicyOutput, error)
	CreateAccessPolicy(ctx context.Context, params *opensearchserverless.CreateAccessPolicyInput, optFns ...func(*opensearchserverless.Options)) (*opensearchserverless.CreateAccessPolicyOutput, error)
	CreateCollection(ctx context.Context, params *opensearchserverless.CreateCollectionInput, optFns ...func(*opensearchserverless.Options)) (*opensearchserverless.CreateCollectionOutput, error)
}

// CollectionClient describes and creates vector collections
type CollectionClient struct {
	api          CollectionAPI
	pollInterval time.Duration
	maxPolls     uint64
}

// NewCollectionClient creates a CollectionClient from a resolved AWS config
func NewCollectionClient(awsCfg aws.Config) *CollectionClient {
	return NewCollectionClientWithAPI(opensearchserverless.NewFromConfig(awsCfg), defaultPollInterval, defaultMaxPolls)
}

// NewCollectionClientWithAPI wraps an existing API with explicit polling settings
func NewCollectionClientWithAPI(api CollectionAPI, pollInterval time.Duration, maxPolls uint64) *CollectionClient {
	return &CollectionClient{
		api:          api,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

// BatchDescribe looks up collections by name. An empty result means none exist.
func (c *CollectionClient) BatchDescribe(ctx context.Context, names []string) ([]domain.CollectionInfo, error) {
	out, err := c.api.BatchGetCollection(ctx, &opensearchserverless.BatchGetCollectionInput{
		Names: names,
	})
	if err != nil {
		return nil, awsutil.Classify("failed to batch get collections", err)
	}

	infos := make([]domain.CollectionInfo, 0, len(out.CollectionDetails))
	for _, d := range out.CollectionDetails {
		infos = append(infos, domain.CollectionInfo{
			ID:       aws.ToString(d.Id),
			Name:     aws.ToString(d.Name),
			ARN:      aws.ToString(d.Arn),
			Endpoint: aws.ToString(d.CollectionEndpoint),
			Status:   domain.CollectionStatus(d.Status),
		})
	}
	return infos, nil
}

// CollectionSpec describes a vector collection to create
type CollectionSpec struct {
	Name string
	// Principals get data access to the collection and its indexes
	Principals []string
}

// Create provisions the encryption, network and data access policies, then
// the collection itself, and waits until it is ACTIVE.
func (c *CollectionClient) Create(ctx context.Context, spec CollectionSpec) (*domain.CollectionInfo, error) {
	if err := c.createSecurityPolicy(ctx, spec.Name, "enc", types.SecurityPolicyTypeEncryption, encryptionPolicy(spec.Name)); err != nil {
		return nil, err
	}
	if err := c.createSecurityPolicy(ctx, spec.Name, "net", types.SecurityPolicyTypeNetwork, networkPolicy(spec.Name)); err != nil {
		return nil, err
	}

	access, err := accessPolicy(spec.Name, spec.Principals)
	if err != nil {
		return nil, err
	}
	_, err = c.api.CreateAccessPolicy(ctx, &opensearchserverless.CreateAccessPolicyInput{
		Name:        aws.String(policyName(spec.Name, "acc")),
		Type:        types.AccessPolicyTypeData,
		Policy:      aws.String(access),
		ClientToken: aws.String(uuid.NewString()),
	})
	if err != nil && !awsutil.IsConflict(err) {
		return nil, awsutil.Classify("failed to create access policy", err)
	}

	_, err = c.api.CreateCollection(ctx, &opensearchserverless.CreateCollectionInput{
		Name:        aws.String(spec.Name),
		Type:        types.CollectionTypeVectorsearch,
		ClientToken: aws.String(uuid.NewString()),
	})
	if err != nil && !awsutil.IsConflict(err) {
		return nil, awsutil.Classify("failed to create collection", err)
	}

	return c.WaitActive(ctx, spec.Name)
}

// WaitActive polls the collection until it reports ACTIVE
func (c *CollectionClient) WaitActive(ctx context.Context, name string) (*domain.CollectionInfo, error) {
	var active *domain.CollectionInfo

	op := func() error {
		infos, err := c.BatchDescribe(ctx, []string{name})
		if err != nil {
			if domain.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(infos) == 0 {
			return errCollectionPending
		}
		switch infos[0].Status {
		case domain.CollectionStatusActive:
			active = &infos[0]
			return nil
		case domain.CollectionStatusFailed:
			return backoff.Permanent(fmt.Errorf("collection %s failed to create", name))
		default:
			return errCollectionPending
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollInterval), c.maxPolls), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, awsutil.Classify("failed waiting for collection", err)
	}
	return active, nil
}

func (c *CollectionClient) createSecurityPolicy(ctx context.Context, collection, tag string, kind types.SecurityPolicyType, policy string) error {
	_, err := c.api.CreateSecurityPolicy(ctx, &opensearchserverless.CreateSecurityPolicyInput{
		Name:        aws.String(policyName(collection, tag)),
		Type:        kind,
		Policy:      aws.String(policy),
		ClientToken: aws.String(uuid.NewString()),
	})
	if err != nil && !awsutil.IsConflict(err) {
		return awsutil.Classify(fmt.Sprintf("failed to create %s policy", kind), err)
	}
	return nil
}

// policyName derives a policy name within the 32 character limit
func policyName(collection, tag string) string {
	suffix := "-" + tag
	base := collection
	if len(base)+len(suffix) > maxPolicyNameLength {
		base = base[:maxPolicyNameLength-len(suffix)]
	}
	return base + suffix
}

type policyRule struct {
	ResourceType string   `json:"ResourceType"`
	Resource     []string `json:"Resource"`
	Permission   []string `json:"Permission,omitempty"`
}

func encryptionPolicy(collection string) string {
	p := struct {
		Rules       []policyRule `json:"Rules"`
		AWSOwnedKey bool         `json:"AWSOwnedKey"`
	}{
		Rules:       []policyRule{{ResourceType: "collection", Resource: []string{"collection/" + collection}}},
		AWSOwnedKey: true,
	}
	b, _ := json.Marshal(p)
	return string(b)
}

func networkPolicy(collection string) string {
	p := []struct {
		Rules           []policyRule `json:"Rules"`
		AllowFromPublic bool         `json:"AllowFromPublic"`
	}{{
		Rules:           []policyRule{{ResourceType: "collection", Resource: []string{"collection/" + collection}}},
		AllowFromPublic: true,
	}}
	b, _ := json.Marshal(p)
	return string(b)
}

func accessPolicy(collection string, principals []string) (string, error) {
	if len(principals) == 0 {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message, errors.New("access policy principals"))
	}
	p := []struct {
		Rules       []policyRule `json:"Rules"`
		Principal   []string     `json:"Principal"`
		Description string       `json:"Description"`
	}{{
		Rules: []policyRule{
			{
				ResourceType: "collection",
				Resource:     []string{"collection/" + collection},
				Permission: []string{
					"aoss:DescribeCollectionItems",
					"aoss:CreateCollectionItems",
					"aoss:UpdateCollectionItems",
				},
			},
			{
				ResourceType: "index",
				Resource:     []string{"index/" + collection + "/*"},
				Permission: []string{
					"aoss:CreateIndex",
					"aoss:DeleteIndex",
					"aoss:UpdateIndex",
					"aoss:DescribeIndex",
					"aoss:ReadDocument",
					"aoss:WriteDocument",
				},
			},
		},
		Principal:   principals,
		Description: "knowledge base data access",
	}}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode access policy: %w", err)
	}
	return string(b), nil
}
