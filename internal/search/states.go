package search

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/arxivite/search-service/internal/domain"
	"github.com/arxivite/search-service/internal/papersources"
	"github.com/arxivite/search-service/internal/query"
	"github.com/arxivite/search-service/internal/telemetry"
)

// State is a step of the retrieval state machine.
type State int

const (
	StateDecide State = iota
	StateInterpret
	StatePreflight
	StateDetailFetch
	StateEmptyRelax
	StateParserErrorRelax
	StateLegacyFallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateDecide:
		return "decide"
	case StateInterpret:
		return "interpret"
	case StatePreflight:
		return "metadata_preflight"
	case StateDetailFetch:
		return "detail_fetch"
	case StateEmptyRelax:
		return "empty_relax"
	case StateParserErrorRelax:
		return "parser_error_relax"
	case StateLegacyFallback:
		return "legacy_fallback"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Provider request stages reported to metrics.
const (
	stagePreflight = "preflight"
	stageDetail    = "detail"
	stageLegacy    = "legacy"
)

// run is the mutable state of one search. The relax and legacy flags make
// each recovery branch reachable at most once per run.
type run struct {
	o   *Orchestrator
	req domain.SearchRequest

	query    string
	papers   []domain.PaperRecord
	metadata domain.SearchMetadata
	path     domain.ResolutionPath
	applied  domain.Sort

	emptyRelaxed  bool
	parserRelaxed bool
	legacyTried   bool

	lastErr error
	err     error
	trace   []State
}

func newRun(o *Orchestrator, req domain.SearchRequest) *run {
	return &run{o: o, req: req}
}

// execute drives the machine from StateDecide to StateDone.
func (r *run) execute(ctx context.Context) error {
	s := StateDecide
	for s != StateDone {
		if ctx.Err() != nil {
			r.err = cancelled(ctx)
			break
		}
		r.trace = append(r.trace, s)
		s = r.safeStep(ctx, s)
	}
	if r.err != nil && ctx.Err() != nil {
		r.err = cancelled(ctx)
	}
	return r.err
}

// safeStep runs one state, turning a panic into a transition: to the legacy
// path if it has not run yet, otherwise to a terminal failure.
func (r *run) safeStep(ctx context.Context, s State) (next State) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		err := fmt.Errorf("panic in %s: %v", s, p)
		r.o.emitter.Emit(telemetry.ErrorEvent(telemetry.ComponentSearch, err, string(debug.Stack())))
		r.o.logger.Error().Str("state", s.String()).Interface("panic", p).Msg("search state panicked")
		r.lastErr = err
		if r.legacyTried {
			r.err = fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
			next = StateDone
			return
		}
		next = StateLegacyFallback
	}()
	return r.step(ctx, s)
}

func (r *run) step(ctx context.Context, s State) State {
	switch s {
	case StateDecide:
		return r.decide()
	case StateInterpret:
		return r.interpret(ctx)
	case StatePreflight:
		return r.preflight(ctx)
	case StateDetailFetch:
		return r.detailFetch(ctx)
	case StateEmptyRelax:
		return r.emptyRelax()
	case StateParserErrorRelax:
		return r.parserErrorRelax()
	case StateLegacyFallback:
		return r.legacyFallback(ctx)
	default:
		panic(fmt.Sprintf("unknown state %d", int(s)))
	}
}

func (r *run) decide() State {
	if query.HasExplicitOperators(r.req.Query) {
		r.query = r.req.Query
		return StatePreflight
	}
	return StateInterpret
}

func (r *run) interpret(ctx context.Context) State {
	intent := r.o.interpreter.Interpret(ctx, r.req.Query)
	compiled := query.Compile(intent)
	if compiled == "" {
		return StateLegacyFallback
	}
	r.query = compiled
	return StatePreflight
}

func (r *run) preflight(ctx context.Context) State {
	res, err := r.fetch(ctx, stagePreflight, papersources.SearchParams{
		Query:      r.query,
		Start:      0,
		MaxResults: 1,
	})
	if err != nil {
		r.o.logger.Debug().Err(err).Str("query", r.query).Msg("metadata preflight failed")
		r.metadata = r.pageMetadata(0)
		return StateDetailFetch
	}
	r.metadata = r.pageMetadata(res.Metadata.TotalResults)
	return StateDetailFetch
}

func (r *run) detailFetch(ctx context.Context) State {
	sort := ProviderSort(r.req.Sort)
	res, err := r.fetch(ctx, stageDetail, papersources.SearchParams{
		Query:      r.query,
		Start:      r.req.Pagination.Start(),
		MaxResults: r.req.Pagination.PageSize,
		SortBy:     string(sort.Field),
		SortOrder:  string(sort.Order),
	})
	if err != nil {
		r.lastErr = err
		if errors.Is(err, domain.ErrQuerySyntax) && !r.parserRelaxed {
			return StateParserErrorRelax
		}
		return StateLegacyFallback
	}

	if len(res.Papers) == 0 && !r.emptyRelaxed && query.HasStrictAuthorClause(r.query) {
		return StateEmptyRelax
	}

	r.papers = res.Papers
	r.applied = sort
	if r.path == "" {
		r.path = domain.PathSuccess
	} else {
		r.metadata = r.pageMetadata(res.Metadata.TotalResults)
	}
	return StateDone
}

func (r *run) emptyRelax() State {
	r.emptyRelaxed = true
	r.query = query.RelaxAuthors(r.query)
	r.path = domain.PathEmptyRelax
	return StateDetailFetch
}

func (r *run) parserErrorRelax() State {
	r.parserRelaxed = true
	relaxed := query.JoinTermsWithAnd(r.query)
	if relaxed == r.query {
		return StateLegacyFallback
	}
	r.query = relaxed
	r.path = domain.PathParserErrorRelax
	return StateDetailFetch
}

func (r *run) legacyFallback(ctx context.Context) State {
	r.legacyTried = true
	r.path = domain.PathLegacyFallback

	literal := query.EscapeLiteral(r.req.Query)
	if literal == "" {
		r.err = fmt.Errorf("%w: query is empty after escaping: %w", domain.ErrSearchFailed, domain.ErrInvalidInput)
		return StateDone
	}
	r.query = literal

	res, err := r.fetch(ctx, stageLegacy, papersources.SearchParams{
		Query:      literal,
		Start:      r.req.Pagination.Start(),
		MaxResults: r.req.Pagination.PageSize,
		SortBy:     string(domain.DefaultSort.Field),
		SortOrder:  string(domain.DefaultSort.Order),
	})
	if err != nil {
		if r.lastErr != nil {
			r.o.logger.Debug().Err(r.lastErr).Msg("error that triggered legacy fallback")
		}
		r.err = fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
		return StateDone
	}

	r.papers = res.Papers
	r.applied = domain.DefaultSort
	r.metadata = r.pageMetadata(res.Metadata.TotalResults)
	return StateDone
}

func (r *run) fetch(ctx context.Context, stage string, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()
	res, err := r.o.source.Search(ctx, params)
	r.o.metrics.RecordProviderRequest(stage, fetchOutcome(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *run) pageMetadata(total int) domain.SearchMetadata {
	return domain.SearchMetadata{
		TotalResults: domain.ClampTotal(total),
		ItemsPerPage: r.req.Pagination.PageSize,
		StartIndex:   r.req.Pagination.Start(),
	}
}

func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrQuerySyntax):
		return "query_syntax"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func cancelled(ctx context.Context) error {
	if errors.Is(context.Cause(ctx), domain.ErrSuperseded) {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, domain.ErrSuperseded)
	}
	return fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
}
