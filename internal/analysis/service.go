// Package analysis computes statistics, duplicate checks, comparisons and
// word clouds for files held by the storage service.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/textscan/internal/cache"
	"github.com/RishiKendai/textscan/internal/identity"
	"github.com/RishiKendai/textscan/internal/metrics"
	"github.com/RishiKendai/textscan/internal/models"
	"github.com/RishiKendai/textscan/internal/similarity"
	"github.com/RishiKendai/textscan/internal/stats"
	"github.com/RishiKendai/textscan/internal/wordcloud"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultThreshold flags batch candidates whose similarity reaches it.
const DefaultThreshold = 0.8

var ErrReportNotFound = errors.New("analysis: report not found")

// ReportStore persists batch comparison reports. GetReport returns nil, nil
// for an unknown id.
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.SimilarityReport) error
	GetReport(ctx context.Context, reportID string) (*models.SimilarityReport, error)
	DeleteReportsForFile(ctx context.Context, fileID string) (int64, error)
}

// Enqueuer hands a batch comparison to a worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, reportID string, req models.BatchCompareRequest) error
}

type Deps struct {
	Source   ContentSource
	Pool     *similarity.WorkerPool
	Index    *identity.Index
	Cache    cache.Cache
	Statuses cache.StatusStore
	Reports  ReportStore
	Clouds   *wordcloud.Builder
}

type Service struct {
	retriever similarity.Retriever
	engine    *similarity.Engine
	index     *identity.Index
	cache     cache.Cache
	statuses  cache.StatusStore
	reports   ReportStore
	queue     Enqueuer
	clouds    *wordcloud.Builder
}

func NewService(d Deps) *Service {
	retriever := storageRetriever{source: d.Source}
	return &Service{
		retriever: retriever,
		engine:    similarity.NewEngine(retriever, d.Pool),
		index:     d.Index,
		cache:     d.Cache,
		statuses:  d.Statuses,
		reports:   d.Reports,
		clouds:    d.Clouds,
	}
}

// SetQueue attaches the batch queue. The queue's worker needs the service
// itself, so it cannot be passed to NewService.
func (s *Service) SetQueue(q Enqueuer) {
	s.queue = q
}

// Analyze reports fileID as a duplicate when another file already claimed
// the same content digest; otherwise it returns the file's statistics.
func (s *Service) Analyze(ctx context.Context, fileID string) (models.AnalyzeResult, error) {
	content, err := s.fetch(ctx, fileID)
	if err != nil {
		return models.AnalyzeResult{}, err
	}

	digest, err := identity.Digest(ctx, bytes.NewReader(content))
	if err != nil {
		return models.AnalyzeResult{}, err
	}
	owner, err := s.index.Observe(ctx, fileID, digest)
	if err != nil {
		return models.AnalyzeResult{}, err
	}
	if owner != "" {
		log.Debug().Str("file_id", fileID).Str("duplicate_of", owner).Msg("Duplicate content")
		return models.AnalyzeResult{DuplicateOf: owner}, nil
	}

	st := s.statsFor(ctx, fileID, content)
	return models.AnalyzeResult{FileID: fileID, Stats: st}, nil
}

// Stats returns the statistics of fileID, from cache when possible.
func (s *Service) Stats(ctx context.Context, fileID string) (models.StatsResponse, error) {
	cached, ok, err := s.cache.GetStats(ctx, fileID)
	if err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("Stats cache read failed")
	}
	if ok {
		metrics.CacheLookups.WithLabelValues("stats", "hit").Inc()
		return models.StatsResponse{FileID: fileID, Statistics: *cached}, nil
	}
	metrics.CacheLookups.WithLabelValues("stats", "miss").Inc()

	content, err := s.fetch(ctx, fileID)
	if err != nil {
		return models.StatsResponse{}, err
	}
	return models.StatsResponse{FileID: fileID, Statistics: s.statsFor(ctx, fileID, content)}, nil
}

func (s *Service) statsFor(ctx context.Context, fileID string, content []byte) models.Statistics {
	st := stats.Calculate(string(content))
	if err := s.cache.SetStats(ctx, fileID, st); err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("Stats cache write failed")
	}
	return st
}

// Compare scores two stored files, from cache when possible.
func (s *Service) Compare(ctx context.Context, fileID, otherFileID string) (models.ComparisonResult, error) {
	cached, ok, err := s.cache.GetComparison(ctx, fileID, otherFileID)
	if err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("Comparison cache read failed")
	}
	if ok {
		metrics.CacheLookups.WithLabelValues("compare", "hit").Inc()
		metrics.ComparisonCount.WithLabelValues("files", "ok").Inc()
		return *cached, nil
	}
	metrics.CacheLookups.WithLabelValues("compare", "miss").Inc()

	result, err := s.engine.CompareFiles(ctx, fileID, otherFileID)
	if err != nil {
		metrics.ComparisonCount.WithLabelValues("files", "error").Inc()
		return models.ComparisonResult{}, err
	}
	metrics.ComparisonCount.WithLabelValues("files", "ok").Inc()

	if err := s.cache.SetComparison(ctx, fileID, otherFileID, result); err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("Comparison cache write failed")
	}
	return result, nil
}

func (s *Service) CompareText(req models.CompareTextRequest) (models.ComparisonResult, error) {
	result, err := similarity.Compare(req.TextA, req.TextB)
	if err != nil {
		metrics.ComparisonCount.WithLabelValues("text", "error").Inc()
		return models.ComparisonResult{}, err
	}
	metrics.ComparisonCount.WithLabelValues("text", "ok").Inc()
	return result, nil
}

// BatchCompare records a pending report and queues the comparison.
func (s *Service) BatchCompare(ctx context.Context, req models.BatchCompareRequest) (models.BatchCompareResponse, error) {
	if len(req.Candidates) == 0 {
		return models.BatchCompareResponse{}, fmt.Errorf("%w: candidates must not be empty", similarity.ErrInvalidArgument)
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return models.BatchCompareResponse{}, fmt.Errorf("%w: threshold must be between 0 and 1", similarity.ErrInvalidArgument)
	}
	if req.Threshold == 0 {
		req.Threshold = DefaultThreshold
	}
	if s.queue == nil {
		return models.BatchCompareResponse{}, errors.New("batch queue is not configured")
	}

	reportID := uuid.NewString()
	report := &models.SimilarityReport{
		ReportID:  reportID,
		FileID:    req.FileID,
		Status:    "pending",
		Threshold: req.Threshold,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reports.SaveReport(ctx, report); err != nil {
		return models.BatchCompareResponse{}, err
	}
	if err := s.statuses.SetStatus(ctx, reportID, models.StepQueued); err != nil {
		return models.BatchCompareResponse{}, err
	}
	if err := s.queue.Enqueue(ctx, reportID, req); err != nil {
		s.finish(context.WithoutCancel(ctx), report, nil, err)
		return models.BatchCompareResponse{}, err
	}

	log.Info().
		Str("report_id", reportID).
		Str("file_id", req.FileID).
		Int("candidates", len(req.Candidates)).
		Msg("Batch comparison queued")
	return models.BatchCompareResponse{Step: models.StepQueued, ReportID: reportID}, nil
}

// RunBatch is the worker side of BatchCompare.
func (s *Service) RunBatch(ctx context.Context, reportID string, req models.BatchCompareRequest) error {
	start := time.Now()
	defer func() {
		metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}()

	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return err
	}
	if report == nil {
		report = &models.SimilarityReport{
			ReportID:  reportID,
			FileID:    req.FileID,
			Threshold: req.Threshold,
			CreatedAt: time.Now().UTC(),
		}
	}
	if report.Threshold == 0 {
		report.Threshold = DefaultThreshold
	}

	s.setStatus(ctx, reportID, models.StepStarted)
	s.setStatus(ctx, reportID, models.StepComparing)

	matches, err := s.engine.CompareMany(ctx, req.FileID, req.Candidates)
	s.finish(context.WithoutCancel(ctx), report, matches, err)
	if err != nil {
		metrics.ComparisonCount.WithLabelValues("batch", "error").Inc()
		return err
	}
	metrics.ComparisonCount.WithLabelValues("batch", "ok").Inc()
	return nil
}

func (s *Service) finish(ctx context.Context, report *models.SimilarityReport, matches []models.ReportMatch, runErr error) {
	now := time.Now().UTC()
	report.FinishedAt = &now
	report.Matches = matches
	report.Flagged = nil

	step := models.StepCompleted
	if runErr != nil {
		step = models.StepFailed
		report.Status = "failed"
		report.Error = runErr.Error()
	} else {
		report.Status = "completed"
		for _, m := range matches {
			if m.Error == "" && m.Similarity >= report.Threshold {
				report.Flagged = append(report.Flagged, m.FileID)
			}
		}
	}

	if err := s.reports.SaveReport(ctx, report); err != nil {
		log.Error().Err(err).Str("report_id", report.ReportID).Msg("Failed to save report")
	}
	s.setStatus(ctx, report.ReportID, step)

	log.Info().
		Str("report_id", report.ReportID).
		Str("status", report.Status).
		Int("matches", len(matches)).
		Int("flagged", len(report.Flagged)).
		Msg("Batch comparison finished")
}

func (s *Service) setStatus(ctx context.Context, reportID string, step models.Step) {
	if err := s.statuses.SetStatus(ctx, reportID, step); err != nil {
		log.Warn().Err(err).Str("report_id", reportID).Msg("Failed to update report status")
	}
}

// Report returns the stored report and its latest step.
func (s *Service) Report(ctx context.Context, reportID string) (models.ReportResponse, error) {
	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return models.ReportResponse{}, err
	}
	step, ok, err := s.statuses.GetStatus(ctx, reportID)
	if err != nil {
		return models.ReportResponse{}, err
	}
	if report == nil && !ok {
		return models.ReportResponse{}, fmt.Errorf("report %s: %w", reportID, ErrReportNotFound)
	}
	if !ok {
		step = stepFromStatus(report.Status)
	}
	return models.ReportResponse{Step: step, Report: report}, nil
}

func stepFromStatus(status string) models.Step {
	switch status {
	case "completed":
		return models.StepCompleted
	case "failed":
		return models.StepFailed
	default:
		return models.StepQueued
	}
}

// CloudURL builds the word cloud chart URL for fileID.
func (s *Service) CloudURL(ctx context.Context, fileID string) (models.WordCloud, error) {
	content, err := s.fetch(ctx, fileID)
	if err != nil {
		return models.WordCloud{}, err
	}
	chartURL, err := s.clouds.URL(string(content))
	if err != nil {
		return models.WordCloud{}, err
	}
	return models.WordCloud{FileID: fileID, WordCloudURL: chartURL}, nil
}

// CloudImage renders the word cloud of fileID and returns the image bytes.
func (s *Service) CloudImage(ctx context.Context, fileID string) ([]byte, string, error) {
	cloud, err := s.CloudURL(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	return s.clouds.Fetch(ctx, cloud.WordCloudURL)
}

// Invalidate drops cached results for fileID and, while its content is still
// retrievable, releases its digest if fileID owns it.
func (s *Service) Invalidate(ctx context.Context, fileID string) error {
	if err := s.cache.Invalidate(ctx, fileID); err != nil {
		return err
	}

	content, err := s.fetch(ctx, fileID)
	if err != nil {
		if !errors.Is(err, similarity.ErrNotFound) {
			log.Warn().Err(err).Str("file_id", fileID).Msg("Could not release digest")
		}
		return nil
	}
	digest, err := identity.Digest(ctx, bytes.NewReader(content))
	if err != nil {
		return err
	}
	released, err := s.index.Release(ctx, fileID, digest)
	if err != nil {
		return err
	}
	if released {
		log.Debug().Str("file_id", fileID).Msg("Digest released")
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, fileID string) ([]byte, error) {
	content, err := s.retriever.GetContent(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", fileID, err)
	}
	return content, nil
}
