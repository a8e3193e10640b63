package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceKind_IsValid(t *testing.T) {
	for _, kind := range ResourceKinds {
		assert.True(t, kind.IsValid(), kind)
	}
	assert.False(t, ResourceKind("queue").IsValid())
}

func TestNewFoundDescriptor(t *testing.T) {
	d, err := NewFoundDescriptor(ResourceKindBucket, "b", "b", &BucketInfo{Name: "b"})
	require.NoError(t, err)
	assert.True(t, d.Found())
	assert.Equal(t, ExistenceFound, d.Existence)
}

func TestNewFoundDescriptor_RejectsMissingPayload(t *testing.T) {
	var info *KnowledgeBaseInfo

	_, err := NewFoundDescriptor(ResourceKindKnowledgeBase, "kb", "id", info)
	assert.ErrorIs(t, err, ErrFabricatedDescriptor)

	_, err = NewFoundDescriptor(ResourceKindKnowledgeBase, "kb", "id", nil)
	assert.ErrorIs(t, err, ErrFabricatedDescriptor)
}

func TestNewFoundDescriptor_InvalidKind(t *testing.T) {
	_, err := NewFoundDescriptor("queue", "q", "q", &BucketInfo{})
	assert.ErrorIs(t, err, ErrInvalidResourceKind)
}

func TestNewNotFoundDescriptor(t *testing.T) {
	d := NewNotFoundDescriptor(ResourceKindVectorCollection, "rag")
	assert.False(t, d.Found())
	assert.Nil(t, d.Payload)

	var nilDesc *ResourceDescriptor
	assert.False(t, nilDesc.Found())
}

func TestBucketARN(t *testing.T) {
	assert.Equal(t, "arn:aws:s3:::bedrock-kb-1", BucketARN("bedrock-kb-1"))
	assert.Equal(t, "arn:aws:s3:::b", (&BucketInfo{Name: "b"}).ARN())
}
