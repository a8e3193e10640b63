package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/telemetry"
)

// Retriever is the retrieval and generation side of the runtime service
type Retriever interface {
	RetrieveAndGenerate(ctx context.Context, question, kbID, modelARN string, limit int) (*domain.GeneratedAnswer, error)
	Retrieve(ctx context.Context, question, kbID string, limit int) ([]domain.RetrievedChunk, error)
}

// Session holds everything a query needs. It replaces process-wide client
// handles and is built once the knowledge base handle is resolved.
type Session struct {
	Handle      *domain.KnowledgeBaseHandle
	Runtime     Retriever
	ModelARN    string
	ResultLimit int
}

// Request builds a QueryRequest using the session's result limit
func (s Session) Request(question string, mode domain.QueryMode) domain.QueryRequest {
	return domain.QueryRequest{
		Question:    question,
		Mode:        mode,
		ResultLimit: s.ResultLimit,
	}
}

// Dispatch routes a question to retrieve-and-generate or retrieve-only.
// The question itself is not validated; the provider decides whether it is
// acceptable. Provider failures are returned as QUERY_ERROR.
func Dispatch(ctx context.Context, s Session, req domain.QueryRequest) (*domain.QueryResult, error) {
	if s.Handle == nil || s.Handle.ID == "" {
		return nil, domain.ErrMissingKnowledgeBase
	}
	if !req.Mode.IsValid() {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidQueryMode.Message,
			fmt.Errorf("mode %q", req.Mode))
	}

	ctx, span := telemetry.StartSpan(ctx, "query."+string(req.Mode), telemetry.SpanAttributes{
		KnowledgeBaseID: s.Handle.ID,
		Operation:       string(req.Mode),
	})
	defer span.End()

	limit := req.Limit()

	switch req.Mode {
	case domain.QueryModeGenerate:
		if s.ModelARN == "" {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrMissingRequiredField.Message,
				fmt.Errorf("model ARN"))
		}
		answer, err := s.Runtime.RetrieveAndGenerate(ctx, req.Question, s.Handle.ID, s.ModelARN, limit)
		if err != nil {
			span.SetError(err)
			return nil, domain.NewQueryError(req.Mode, err)
		}
		if answer == nil {
			answer = &domain.GeneratedAnswer{}
		}
		return &domain.QueryResult{Mode: req.Mode, Answer: answer}, nil

	default:
		chunks, err := s.Runtime.Retrieve(ctx, req.Question, s.Handle.ID, limit)
		if err != nil {
			span.SetError(err)
			return nil, domain.NewQueryError(req.Mode, err)
		}
		if len(chunks) > limit {
			chunks = chunks[:limit]
		}
		return &domain.QueryResult{Mode: req.Mode, Chunks: chunks}, nil
	}
}
