// Package identity resolves the calling AWS principal and manages the IAM
// service role the knowledge base assumes.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/cloo-solutions/kbstrap/internal/awsutil"
	"github.com/cloo-solutions/kbstrap/internal/domain"
)

// STSAPI is the subset of the STS client used here
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// IAMAPI is the subset of the IAM client used here
type IAMAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	PutRolePolicy(ctx context.Context, params *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
}

// Identity is the caller's account and principal
type Identity struct {
	Account string
	ARN     string
}

// PrincipalARN returns an ARN usable in resource policies. Assumed-role
// session ARNs are mapped back to their IAM role.
func (i Identity) PrincipalARN() string {
	// arn:aws:sts::123456789012:assumed-role/RoleName/session
	parts := strings.Split(i.ARN, ":")
	if len(parts) != 6 || parts[2] != "sts" {
		return i.ARN
	}
	resource := strings.Split(parts[5], "/")
	if len(resource) < 2 || resource[0] != "assumed-role" {
		return i.ARN
	}
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", parts[1], parts[4], resource[1])
}

// Client wraps STS and IAM
type Client struct {
	sts STSAPI
	iam IAMAPI
}

// NewClient creates a Client from a resolved AWS config
func NewClient(awsCfg aws.Config) *Client {
	return NewClientWithAPI(sts.NewFromConfig(awsCfg), iam.NewFromConfig(awsCfg))
}

// NewClientWithAPI wraps existing API implementations
func NewClientWithAPI(stsAPI STSAPI, iamAPI IAMAPI) *Client {
	return &Client{sts: stsAPI, iam: iamAPI}
}

// CallerIdentity resolves the account and principal of the current credentials
func (c *Client) CallerIdentity(ctx context.Context) (*Identity, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeFatalSetup, domain.ErrIdentityResolution.Message, err)
	}
	return &Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
	}, nil
}

// RoleSpec describes the knowledge base service role
type RoleSpec struct {
	Name              string
	AccountID         string
	Region            string
	BucketNames       []string
	EmbeddingModelARN string
}

const (
	foundationModelPolicyName = "bedrock-kb-foundation-model-and-s3"
	collectionPolicyName      = "bedrock-kb-opensearch-serverless"
)

// EnsureKnowledgeBaseRole creates the service role, or reuses one with the
// same name, and grants it model invocation and bucket read access.
func (c *Client) EnsureKnowledgeBaseRole(ctx context.Context, spec RoleSpec) (string, error) {
	trust, err := trustPolicy(spec.AccountID, spec.Region)
	if err != nil {
		return "", err
	}

	var roleARN string
	out, err := c.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(spec.Name),
		AssumeRolePolicyDocument: aws.String(trust),
		Description:              aws.String("Amazon Bedrock Knowledge Base execution role"),
	})
	switch {
	case err == nil:
		roleARN = aws.ToString(out.Role.Arn)
	case awsutil.IsConflict(err):
		existing, getErr := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(spec.Name)})
		if getErr != nil {
			return "", awsutil.Classify("failed to get role", getErr)
		}
		roleARN = aws.ToString(existing.Role.Arn)
	default:
		return "", awsutil.Classify("failed to create role", err)
	}

	policy, err := foundationModelAndS3Policy(spec)
	if err != nil {
		return "", err
	}
	if err := c.putRolePolicy(ctx, spec.Name, foundationModelPolicyName, policy); err != nil {
		return "", err
	}
	return roleARN, nil
}

// AttachCollectionAccess lets the role call the collection's data plane
func (c *Client) AttachCollectionAccess(ctx context.Context, roleName, collectionARN string) error {
	policy, err := marshalPolicy([]statement{{
		Effect:   "Allow",
		Action:   []string{"aoss:APIAccessAll"},
		Resource: []string{collectionARN},
	}})
	if err != nil {
		return err
	}
	return c.putRolePolicy(ctx, roleName, collectionPolicyName, policy)
}

func (c *Client) putRolePolicy(ctx context.Context, roleName, policyName, document string) error {
	_, err := c.iam.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(document),
	})
	if err != nil {
		return awsutil.Classify("failed to put role policy "+policyName, err)
	}
	return nil
}

type statement struct {
	Effect    string         `json:"Effect"`
	Principal map[string]any `json:"Principal,omitempty"`
	Action    any            `json:"Action"`
	Resource  []string       `json:"Resource,omitempty"`
	Condition map[string]any `json:"Condition,omitempty"`
}

func marshalPolicy(statements []statement) (string, error) {
	doc := struct {
		Version   string      `json:"Version"`
		Statement []statement `json:"Statement"`
	}{
		Version:   "2012-10-17",
		Statement: statements,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode policy: %w", err)
	}
	return string(b), nil
}

func trustPolicy(accountID, region string) (string, error) {
	return marshalPolicy([]statement{{
		Effect:    "Allow",
		Principal: map[string]any{"Service": "bedrock.amazonaws.com"},
		Action:    "sts:AssumeRole",
		Condition: map[string]any{
			"StringEquals": map[string]any{"aws:SourceAccount": accountID},
			"ArnLike": map[string]any{
				"aws:SourceArn": fmt.Sprintf("arn:aws:bedrock:%s:%s:knowledge-base/*", region, accountID),
			},
		},
	}})
}

func foundationModelAndS3Policy(spec RoleSpec) (string, error) {
	buckets := make([]string, 0, 2*len(spec.BucketNames))
	for _, b := range spec.BucketNames {
		buckets = append(buckets, domain.BucketARN(b), domain.BucketARN(b)+"/*")
	}

	return marshalPolicy([]statement{
		{
			Effect:   "Allow",
			Action:   []string{"bedrock:InvokeModel"},
			Resource: []string{spec.EmbeddingModelARN},
		},
		{
			Effect:    "Allow",
			Action:    []string{"s3:GetObject", "s3:ListBucket"},
			Resource:  buckets,
			Condition: map[string]any{"StringEquals": map[string]any{"aws:ResourceAccount": spec.AccountID}},
		},
	})
}
