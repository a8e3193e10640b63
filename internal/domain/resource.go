package domain

import "fmt"

// ResourceKind identifies a managed resource
type ResourceKind string

const (
	ResourceKindBucket           ResourceKind = "bucket"
	ResourceKindVectorCollection ResourceKind = "vector_collection"
	ResourceKindKnowledgeBase    ResourceKind = "knowledge_base"
	ResourceKindDataSource       ResourceKind = "data_source"
)

// ResourceKinds lists the managed kinds in reconciliation order. Later kinds
// reference earlier ones by identifier.
var ResourceKinds = []ResourceKind{
	ResourceKindBucket,
	ResourceKindVectorCollection,
	ResourceKindKnowledgeBase,
	ResourceKindDataSource,
}

// IsValid checks if the resource kind is valid
func (k ResourceKind) IsValid() bool {
	switch k {
	case ResourceKindBucket, ResourceKindVectorCollection, ResourceKindKnowledgeBase, ResourceKindDataSource:
		return true
	default:
		return false
	}
}

// Existence is the outcome of a probe
type Existence string

const (
	ExistenceFound    Existence = "found"
	ExistenceNotFound Existence = "not_found"
)

// ResourceDescriptor is the uniform result of probing or creating a resource.
// Payload holds the kind-specific record read from the provider
// (*BucketInfo, *CollectionInfo, *KnowledgeBaseInfo or *DataSourceDescriptor).
type ResourceDescriptor struct {
	Kind      ResourceKind
	Name      string
	ID        string
	Existence Existence
	Payload   any
}

// NewFoundDescriptor builds a Found descriptor. A nil payload is rejected:
// a found resource is always backed by a provider read.
func NewFoundDescriptor(kind ResourceKind, name, id string, payload any) (*ResourceDescriptor, error) {
	if !kind.IsValid() {
		return nil, NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidResourceKind.Message, fmt.Errorf("kind %q", kind))
	}
	if isNilPayload(payload) {
		return nil, ErrFabricatedDescriptor
	}
	return &ResourceDescriptor{
		Kind:      kind,
		Name:      name,
		ID:        id,
		Existence: ExistenceFound,
		Payload:   payload,
	}, nil
}

// NewNotFoundDescriptor builds a NotFound descriptor
func NewNotFoundDescriptor(kind ResourceKind, name string) *ResourceDescriptor {
	return &ResourceDescriptor{
		Kind:      kind,
		Name:      name,
		Existence: ExistenceNotFound,
	}
}

// Found reports whether the resource exists
func (d *ResourceDescriptor) Found() bool {
	return d != nil && d.Existence == ExistenceFound
}

func isNilPayload(p any) bool {
	switch v := p.(type) {
	case nil:
		return true
	case *BucketInfo:
		return v == nil
	case *CollectionInfo:
		return v == nil
	case *KnowledgeBaseInfo:
		return v == nil
	case *DataSourceDescriptor:
		return v == nil
	default:
		return false
	}
}

// BucketInfo is the payload of a bucket descriptor
type BucketInfo struct {
	Name   string
	Region string
}

// ARN returns the bucket ARN used by data source configurations
func (b *BucketInfo) ARN() string {
	return BucketARN(b.Name)
}

// BucketARN formats an S3 bucket ARN
func BucketARN(bucket string) string {
	return "arn:aws:s3:::" + bucket
}

// CollectionStatus mirrors the vector collection lifecycle
type CollectionStatus string

const (
	CollectionStatusCreating CollectionStatus = "CREATING"
	CollectionStatusActive   CollectionStatus = "ACTIVE"
	CollectionStatusFailed   CollectionStatus = "FAILED"
)

// CollectionInfo is the payload of a vector collection descriptor
type CollectionInfo struct {
	ID       string
	Name     string
	ARN      string
	Endpoint string
	Status   CollectionStatus
}

// KnowledgeBaseInfo is the payload of a knowledge base descriptor
type KnowledgeBaseInfo struct {
	ID          string
	ARN         string
	Name        string
	Description string
	RoleARN     string
	Status      string
	DataSources []DataSourceDescriptor
}
