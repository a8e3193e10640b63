package domain

import "strings"

// QueryMode selects the retrieval operation
type QueryMode string

const (
	QueryModeGenerate QueryMode = "retrieve_and_generate"
	QueryModeRetrieve QueryMode = "retrieve"
)

// DefaultResultLimit is the number of chunks requested when none is given
const DefaultResultLimit = 5

// IsValid checks if the query mode is valid
func (m QueryMode) IsValid() bool {
	return m == QueryModeGenerate || m == QueryModeRetrieve
}

// QueryRequest is a single question against a knowledge base
type QueryRequest struct {
	Question    string
	Mode        QueryMode
	ResultLimit int
}

// Limit returns the effective result-count limit
func (r QueryRequest) Limit() int {
	if r.ResultLimit <= 0 {
		return DefaultResultLimit
	}
	return r.ResultLimit
}

// ChunkLocation points at the source document of a chunk
type ChunkLocation struct {
	Type string
	URI  string
}

// String renders the location for display
func (l ChunkLocation) String() string {
	if l.URI == "" {
		return l.Type
	}
	if l.Type == "" {
		return l.URI
	}
	return l.Type + " " + l.URI
}

// RetrievedChunk is one ranked evidence chunk
type RetrievedChunk struct {
	Content  string
	Location ChunkLocation
	Score    float64
	Metadata map[string]any
}

// GeneratedAnswer is the synthesized answer of a retrieve-and-generate call
type GeneratedAnswer struct {
	Text      string
	SessionID string
	Citations []string
}

// QueryResult holds exactly one of Answer or Chunks, depending on Mode
type QueryResult struct {
	Mode   QueryMode
	Answer *GeneratedAnswer
	Chunks []RetrievedChunk
}

// ExitSentinel ends the interactive loop
const ExitSentinel = "exit"

// IsExit reports whether a line of input is the exit sentinel, ignoring case.
// Surrounding whitespace makes it an ordinary question.
func IsExit(input string) bool {
	return strings.ToLower(input) == ExitSentinel
}
