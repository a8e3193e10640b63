package domain

import (
	"fmt"
	"time"
)

// Mode is the reconciliation policy chosen once at process start
type Mode string

const (
	// ModeAdopt reuses resources recorded under fixed names
	ModeAdopt Mode = "adopt"
	// ModeCreate provisions fresh resources under generated names
	ModeCreate Mode = "create"
)

// IsValid checks if the mode is valid
func (m Mode) IsValid() bool {
	return m == ModeAdopt || m == ModeCreate
}

// Action is the per-resource decision derived from the mode
type Action string

const (
	ActionAdopt  Action = "adopt"
	ActionCreate Action = "create"
)

// ResourcePolicy tells the reconciler what to do with one resource kind
type ResourcePolicy struct {
	Action Action
	Name   string
}

// NameSet holds the names of every managed resource for one run
type NameSet struct {
	KnowledgeBase    string
	Bucket           string
	VectorCollection string
	VectorIndex      string
	Role             string
}

// NamePrefixes are the fixed stems for generated names
type NamePrefixes struct {
	KnowledgeBase    string
	Bucket           string
	VectorCollection string
	VectorIndex      string
	Role             string
}

// DefaultNamePrefixes returns the stems used when configuration leaves them empty
func DefaultNamePrefixes() NamePrefixes {
	return NamePrefixes{
		KnowledgeBase:    "bedrock-sample-knowledge-base",
		Bucket:           "bedrock-kb",
		VectorCollection: "bedrock-sample-rag",
		VectorIndex:      "bedrock-sample-rag-index",
		Role:             "AmazonBedrockExecutionRoleForKnowledgeBase",
	}
}

const (
	suffixTimestampLayout = "20060102150405"
	suffixLength          = 7
)

// GenerateSuffix returns the last seven characters of the local timestamp
// formatted as YYYYMMDDHHMMSS.
func GenerateSuffix(now time.Time) string {
	ts := now.Local().Format(suffixTimestampLayout)
	return ts[len(ts)-suffixLength:]
}

// Generate derives a full name set from the prefixes and a suffix
func (p NamePrefixes) Generate(suffix string) NameSet {
	return NameSet{
		KnowledgeBase:    fmt.Sprintf("%s-%s", p.KnowledgeBase, suffix),
		Bucket:           fmt.Sprintf("%s-%s-1", p.Bucket, suffix),
		VectorCollection: fmt.Sprintf("%s-%s", p.VectorCollection, suffix),
		VectorIndex:      fmt.Sprintf("%s-%s", p.VectorIndex, suffix),
		Role:             fmt.Sprintf("%s_%s", p.Role, suffix),
	}
}

// Plan is the reconciliation policy for one process run. It is built once
// and passed by value.
type Plan struct {
	Mode                     Mode
	Suffix                   string
	Names                    NameSet
	KnowledgeBaseDescription string
	ChunkingStrategy         ChunkingStrategy
}

// NewAdoptPlan builds a plan that reuses the given names
func NewAdoptPlan(names NameSet, description string) Plan {
	return Plan{
		Mode:                     ModeAdopt,
		Names:                    names,
		KnowledgeBaseDescription: description,
	}
}

// NewCreatePlan builds a plan with names generated from now
func NewCreatePlan(prefixes NamePrefixes, now time.Time, description string, strategy ChunkingStrategy) Plan {
	suffix := GenerateSuffix(now)
	if strategy == "" {
		strategy = ChunkingStrategyFixedSize
	}
	return Plan{
		Mode:                     ModeCreate,
		Suffix:                   suffix,
		Names:                    prefixes.Generate(suffix),
		KnowledgeBaseDescription: description,
		ChunkingStrategy:         strategy,
	}
}

// Validate checks that the plan carries what its mode needs
func (p Plan) Validate() error {
	if !p.Mode.IsValid() {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidMode.Message, fmt.Errorf("mode %q", p.Mode))
	}
	if p.Names.KnowledgeBase == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrMissingRequiredField.Message, fmt.Errorf("knowledge base name"))
	}
	if p.Mode == ModeCreate && (p.Names.Bucket == "" || p.Names.VectorCollection == "") {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrMissingRequiredField.Message, fmt.Errorf("bucket and vector collection names"))
	}
	return nil
}

// Policy returns the decision for one resource kind. Data sources have no
// name of their own in adopt mode; they are discovered through the knowledge base.
func (p Plan) Policy(kind ResourceKind) ResourcePolicy {
	action := ActionCreate
	if p.Mode == ModeAdopt {
		action = ActionAdopt
	}

	switch kind {
	case ResourceKindBucket:
		return ResourcePolicy{Action: action, Name: p.Names.Bucket}
	case ResourceKindVectorCollection:
		return ResourcePolicy{Action: action, Name: p.Names.VectorCollection}
	case ResourceKindKnowledgeBase:
		return ResourcePolicy{Action: action, Name: p.Names.KnowledgeBase}
	default:
		return ResourcePolicy{Action: action}
	}
}

// DataSourceSpecs lists the data sources registered on the create path
func (p Plan) DataSourceSpecs() []DataSourceSpec {
	return []DataSourceSpec{
		{Kind: DataSourceKindS3, BucketName: p.Names.Bucket},
	}
}
