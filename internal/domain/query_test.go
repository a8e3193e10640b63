package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryRequest_Limit(t *testing.T) {
	assert.Equal(t, DefaultResultLimit, QueryRequest{}.Limit())
	assert.Equal(t, DefaultResultLimit, QueryRequest{ResultLimit: -1}.Limit())
	assert.Equal(t, 3, QueryRequest{ResultLimit: 3}.Limit())
}

func TestQueryMode_IsValid(t *testing.T) {
	assert.True(t, QueryModeGenerate.IsValid())
	assert.True(t, QueryModeRetrieve.IsValid())
	assert.False(t, QueryMode("stream").IsValid())
}

func TestIsExit(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"exit", true},
		{"EXIT", true},
		{"Exit", true},
		{"  exit", false},
		{"exit ", false},
		{"exit now", false},
		{"", false},
		{"quit", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsExit(tt.input))
		})
	}
}

func TestChunkLocation_String(t *testing.T) {
	assert.Equal(t, "S3 s3://bucket/doc.txt", ChunkLocation{Type: "S3", URI: "s3://bucket/doc.txt"}.String())
	assert.Equal(t, "s3://bucket/doc.txt", ChunkLocation{URI: "s3://bucket/doc.txt"}.String())
	assert.Equal(t, "WEB", ChunkLocation{Type: "WEB"}.String())
}
