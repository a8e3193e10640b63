package domain

// Provenance records how a knowledge base handle came to be
type Provenance string

const (
	ProvenanceAdopted Provenance = "adopted"
	ProvenanceCreated Provenance = "created"
)

// DataSourceKind is the storage behind a data source
type DataSourceKind string

const (
	DataSourceKindS3 DataSourceKind = "S3"
)

// DataSourceDescriptor is a data source registered against a knowledge base
type DataSourceDescriptor struct {
	ID              string
	KnowledgeBaseID string
	Name            string
	Kind            DataSourceKind
	// Location is source specific; for S3 it is the bucket ARN.
	Location          string
	InclusionPrefixes []string
	Status            string
}

// DataSourceSpec describes a data source to register on the create path
type DataSourceSpec struct {
	Kind       DataSourceKind
	BucketName string
}

// ChunkingStrategy selects how ingestion splits documents
type ChunkingStrategy string

const (
	ChunkingStrategyFixedSize ChunkingStrategy = "FIXED_SIZE"
	ChunkingStrategyNone      ChunkingStrategy = "NONE"
	ChunkingStrategyDefault   ChunkingStrategy = "DEFAULT"
)

// KnowledgeBaseHandle is the resolved knowledge base used for queries
type KnowledgeBaseHandle struct {
	ID          string
	ARN         string
	Name        string
	Description string
	DataSources []DataSourceDescriptor

	provenance Provenance
}

// NewAdoptedHandle wraps an existing knowledge base
func NewAdoptedHandle(kb *KnowledgeBaseInfo) *KnowledgeBaseHandle {
	return newHandle(kb, ProvenanceAdopted)
}

// NewCreatedHandle wraps a freshly provisioned knowledge base
func NewCreatedHandle(kb *KnowledgeBaseInfo) *KnowledgeBaseHandle {
	return newHandle(kb, ProvenanceCreated)
}

func newHandle(kb *KnowledgeBaseInfo, p Provenance) *KnowledgeBaseHandle {
	sources := make([]DataSourceDescriptor, len(kb.DataSources))
	copy(sources, kb.DataSources)
	return &KnowledgeBaseHandle{
		ID:          kb.ID,
		ARN:         kb.ARN,
		Name:        kb.Name,
		Description: kb.Description,
		DataSources: sources,
		provenance:  p,
	}
}

// Provenance returns how the handle was obtained. It is fixed at construction.
func (h *KnowledgeBaseHandle) Provenance() Provenance {
	return h.provenance
}

// Adopted reports whether the handle wraps a pre-existing knowledge base
func (h *KnowledgeBaseHandle) Adopted() bool {
	return h.provenance == ProvenanceAdopted
}
