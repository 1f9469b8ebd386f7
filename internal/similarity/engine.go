package similarity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Retriever resolves a file id to its content. Implementations return an
// error wrapping ErrNotFound for unknown ids; any other error is treated as
// the collaborator being unavailable.
type Retriever interface {
	GetContent(ctx context.Context, fileID string) ([]byte, error)
}

// Engine compares stored files by id.
type Engine struct {
	retriever Retriever
	pool      *WorkerPool
}

func NewEngine(retriever Retriever, pool *WorkerPool) *Engine {
	return &Engine{retriever: retriever, pool: pool}
}

// CompareFiles fetches both files and compares their text. A missing file is
// an error, never a zero score.
func (e *Engine) CompareFiles(ctx context.Context, fileID, otherFileID string) (models.ComparisonResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "similarity.compare_files")
	defer span.End()
	span.SetAttributes(
		attribute.String("file_id", fileID),
		attribute.String("other_file_id", otherFileID),
	)

	a, err := e.fetchSet(ctx, fileID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return models.ComparisonResult{}, err
	}
	b, err := e.fetchSet(ctx, otherFileID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return models.ComparisonResult{}, err
	}

	result := CompareSets(a, b)
	span.SetAttributes(
		attribute.Bool("identical", result.Identical),
		attribute.Float64("similarity", result.Similarity),
	)
	return result, nil
}

// CompareMany scores fileID against every candidate on the worker pool.
// Per-candidate failures are reported in the match, not as an error; only a
// failure to load fileID itself, or cancellation, fails the call. Matches are
// sorted by similarity, highest first.
func (e *Engine) CompareMany(ctx context.Context, fileID string, candidates []string) ([]models.ReportMatch, error) {
	ctx, span := tracing.Tracer().Start(ctx, "similarity.compare_many")
	defer span.End()
	span.SetAttributes(
		attribute.String("file_id", fileID),
		attribute.Int("candidates", len(candidates)),
	)

	base, err := e.fetchSet(ctx, fileID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	matches := make([]models.ReportMatch, len(candidates))
	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		job := &compareJob{
			ctx:       ctx,
			engine:    e,
			base:      base,
			candidate: candidate,
			out:       &matches[i],
			done:      wg.Done,
		}
		if err := e.pool.Submit(ctx, job); err != nil {
			wg.Done()
			// Jobs already queued still write into matches; wait for them.
			e.wait(ctx, &wg)
			return nil, fmt.Errorf("failed to submit comparison for %s: %w", candidate, err)
		}
	}
	if err := e.wait(ctx, &wg); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches, nil
}

// wait blocks until wg is done, ctx is cancelled, or the pool is closed.
func (e *Engine) wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.pool.Done():
		return errors.New("comparison worker pool closed")
	}
}

func (e *Engine) fetchSet(ctx context.Context, fileID string) (map[string]struct{}, error) {
	content, err := e.retriever.GetContent(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("file %s: %w", fileID, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("file %s: %w", fileID, ctxErr)
		}
		return nil, fmt.Errorf("file %s: %w: %w", fileID, ErrUnavailable, err)
	}
	return setOf(content), nil
}

type compareJob struct {
	ctx       context.Context
	engine    *Engine
	base      map[string]struct{}
	candidate string
	out       *models.ReportMatch
	done      func()
}

func (j *compareJob) Execute(_ context.Context) error {
	defer j.done()

	j.out.FileID = j.candidate
	set, err := j.engine.fetchSet(j.ctx, j.candidate)
	if err != nil {
		j.out.Error = err.Error()
		return err
	}
	result := CompareSets(j.base, set)
	j.out.Identical = result.Identical
	j.out.Similarity = result.Similarity
	return nil
}
