package services

import (
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure QueryService implements the interfaces.
var (
	_ driving.QueryService   = (*QueryService)(nil)
	_ driving.HistoryService = (*QueryService)(nil)
)

// QueryService answers questions and records them in the pipeline history.
type QueryService struct {
	p           *Pipeline
	retriever   *Retriever
	assembler   *Assembler
	synthesizer *Synthesizer
	now         func() time.Time
}

// NewQueryService creates a query service over the pipeline.
func NewQueryService(p *Pipeline) *QueryService {
	return &QueryService{
		p:           p,
		retriever:   NewRetriever(p),
		assembler:   NewAssembler(p),
		synthesizer: NewSynthesizer(p),
		now:         time.Now,
	}
}

// Ask retrieves, assembles and synthesizes an answer.
// Every non-blank question is recorded, including failures.
func (s *QueryService) Ask(ctx context.Context, question string) *domain.QueryResult {
	question = strings.TrimSpace(question)
	if question == "" {
		return &domain.QueryResult{Status: domain.QueryEmpty}
	}

	result := s.ask(ctx, question)
	s.p.history.Append(domain.ConversationTurn{
		Question: question,
		Answer:   result.Formatted,
		Status:   result.Status.TurnStatus(),
		Sources:  result.Sources,
		At:       s.now(),
	})
	return result
}

func (s *QueryService) ask(ctx context.Context, question string) *domain.QueryResult {
	logger.Section("Query")

	set, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return failed(question, err)
	}
	logger.Debug("retrieved %d chunk(s) via %s", set.Len(), set.Strategy)

	if set.IsEmpty() {
		return &domain.QueryResult{
			Status:    domain.QueryEmpty,
			Question:  question,
			Formatted: domain.StatusNoRelevant,
			Retrieved: set,
		}
	}

	assembled := s.assembler.Assemble(set)
	if assembled.Truncated {
		logger.Debug("context truncated: %d chunk(s) included, %d dropped", assembled.Included, assembled.Dropped)
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, assembled)
	if err != nil {
		r := failed(question, err)
		r.Retrieved = set
		r.Context = assembled
		return r
	}

	sources := SummariseSources(set)
	return &domain.QueryResult{
		Status:    domain.QuerySuccess,
		Question:  question,
		Answer:    answer,
		Formatted: answer + FormatSources(sources),
		Sources:   sources,
		Retrieved: set,
		Context:   assembled,
	}
}

func failed(question string, err error) *domain.QueryResult {
	logger.Debug("query failed: %v", err)
	return &domain.QueryResult{
		Status:    domain.QueryFailed,
		Question:  question,
		Formatted: domain.StatusQueryFailed + err.Error(),
		Err:       err,
	}
}

// History returns a copy of the recorded turns, oldest first.
func (s *QueryService) History() []domain.ConversationTurn {
	return s.p.history.Turns()
}

// ResetHistory removes all turns.
func (s *QueryService) ResetHistory() {
	s.p.history.Reset()
}
