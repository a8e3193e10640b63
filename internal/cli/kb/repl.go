package kb

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/service"
	"go.uber.org/zap"
)

const (
	prompt         = "\nEnter your query (or 'exit' to quit): "
	maxQueryLength = 1 << 20
)

// REPL reads questions line by line and prints generated answers until the
// operator types exit or input ends. A failed query never stops the loop.
type REPL struct {
	in      *bufio.Scanner
	out     io.Writer
	session service.Session
	logger  *zap.Logger
}

// NewREPL creates a new REPL instance
func NewREPL(in io.Reader, out io.Writer, session service.Session, logger *zap.Logger) *REPL {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxQueryLength)
	return &REPL{in: scanner, out: out, session: session, logger: logger}
}

// Run loops until exit and returns the number of queries dispatched
func (r *REPL) Run(ctx context.Context) (int, error) {
	dispatched := 0
	for {
		fmt.Fprint(r.out, prompt)
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			if err := r.in.Err(); err != nil {
				return dispatched, fmt.Errorf("failed to read input: %w", err)
			}
			return dispatched, nil
		}

		line := r.in.Text()
		if domain.IsExit(line) {
			return dispatched, nil
		}

		dispatched++
		result, err := service.Dispatch(ctx, r.session, r.session.Request(line, domain.QueryModeGenerate))
		if err != nil {
			r.logger.Warn("query failed", zap.String("code", domain.ErrorCode(err)), zap.Error(err))
			fmt.Fprintf(r.out, "Error processing query: %v\n", err)
			fmt.Fprintln(r.out, "Try reformulating your question")
			continue
		}

		fmt.Fprintln(r.out, "\nRetrieve and Generate Response:")
		fmt.Fprintln(r.out, result.Answer.Text)
	}
}

// Demo runs one retrieve-only query and prints every chunk
func (r *REPL) Demo(ctx context.Context, question string) error {
	r.logger.Info("testing retrieval only", zap.String("query", question))

	result, err := service.Dispatch(ctx, r.session, r.session.Request(question, domain.QueryModeRetrieve))
	if err != nil {
		return err
	}

	PrintChunks(r.out, result.Chunks)
	return nil
}

// PrintChunks renders retrieved chunks with content, location, score and metadata
func PrintChunks(w io.Writer, chunks []domain.RetrievedChunk) {
	fmt.Fprintln(w, "\nRetrieval Results:")
	for i, c := range chunks {
		n := i + 1
		fmt.Fprintf(w, "Chunk %d: %s\n", n, c.Content)
		fmt.Fprintf(w, "Chunk %d Location: %s\n", n, c.Location)
		fmt.Fprintf(w, "Chunk %d Score: %v\n", n, c.Score)
		fmt.Fprintf(w, "Chunk %d Metadata: %v\n", n, c.Metadata)
		fmt.Fprintln(w)
	}
}
