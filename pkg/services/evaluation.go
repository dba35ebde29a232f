package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqleval/pkg/apperrors"
	"github.com/ekaya-inc/sqleval/pkg/logging"
	"github.com/ekaya-inc/sqleval/pkg/models"
	"github.com/ekaya-inc/sqleval/pkg/schemas"
	"github.com/ekaya-inc/sqleval/pkg/scoring"
	"github.com/ekaya-inc/sqleval/pkg/services/workqueue"
	"github.com/ekaya-inc/sqleval/pkg/sql"
)

// Canonicalization sides reported on failed samples.
const (
	SideGold      = "gold"
	SidePredicted = "predicted"
)

// progressSteps is how many progress lines a batch logs.
const progressSteps = 10

// EvaluationService scores gold/predicted pairs against registered schemas.
type EvaluationService struct {
	registry *schemas.Registry
	engine   *scoring.Engine
	pool     *workqueue.Pool
	metrics  *Metrics
	logger   *zap.Logger
}

// NewEvaluationService wires the scoring pipeline. metrics may be nil.
func NewEvaluationService(
	registry *schemas.Registry,
	engine *scoring.Engine,
	pool *workqueue.Pool,
	metrics *Metrics,
	logger *zap.Logger,
) *EvaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool == nil {
		pool = workqueue.NewPool(0, logger)
	}
	return &EvaluationService{
		registry: registry,
		engine:   engine,
		pool:     pool,
		metrics:  metrics,
		logger:   logger.Named("evaluation"),
	}
}

// Canonicalize returns the canonical form of sqlQuery for the database dbID.
func (s *EvaluationService) Canonicalize(dbID, sqlQuery string) (*models.Query, error) {
	c, err := s.registry.Canonicalizer(dbID)
	if err != nil {
		return nil, err
	}
	return c.Canonicalize(sqlQuery)
}

// Databases returns the ids of the loaded schemas.
func (s *EvaluationService) Databases() []string {
	return s.registry.DBIDs()
}

// ScorePair canonicalizes both sides of a sample and scores them. A
// canonicalization failure is reported on the result, never returned.
func (s *EvaluationService) ScorePair(ctx context.Context, sample models.Sample) models.SampleResult {
	start := time.Now()
	result := s.scorePair(sample)
	elapsed := time.Since(start)
	result.DurationMS = float64(elapsed.Microseconds()) / 1000

	s.metrics.observe(&result, elapsed)
	if result.Failed() {
		sqlText := sample.Gold
		if result.Side == SidePredicted {
			sqlText = sample.Predicted
		}
		s.logger.Warn("Pair not scored",
			zap.String("sample_id", sample.ID),
			zap.String("db_id", sample.DBID),
			zap.String("side", result.Side),
			zap.String("error_kind", result.ErrorKind),
			zap.String("error", result.Error),
			zap.String("sql", logging.SanitizeQuery(sqlText)))
	}
	return result
}

func (s *EvaluationService) scorePair(sample models.Sample) models.SampleResult {
	result := models.SampleResult{Sample: sample}
	fail := func(side string, err error) models.SampleResult {
		result.Side = side
		result.ErrorKind = apperrors.Kind(err)
		result.Error = err.Error()
		return result
	}

	c, err := s.registry.Canonicalizer(sample.DBID)
	if err != nil {
		return fail("", err)
	}
	gold, err := c.Canonicalize(sample.Gold)
	if err != nil {
		return fail(SideGold, err)
	}
	pred, err := c.Canonicalize(sample.Predicted)
	if err != nil {
		return fail(SidePredicted, err)
	}

	for _, f := range sql.AuditLiterals(pred) {
		result.AuditFlags = append(result.AuditFlags,
			fmt.Sprintf("sqli %s: %s", f.Fingerprint, logging.TruncateString(f.Literal, 60)))
	}

	result.Scores = s.engine.Compare(gold, pred)
	result.ExactMatch = result.Scores.AllExact()
	return result
}

// EvaluateDataset scores every sample on the worker pool and aggregates the
// scored ones. Results keep the order of samples. A failing pair does not
// stop the run; a cancelled ctx does, and the partial report is returned
// with ctx's error.
func (s *EvaluationService) EvaluateDataset(ctx context.Context, samples []models.Sample) (*models.Report, error) {
	report := &models.Report{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Matching:  s.engine.Strategy(),
		Total:     len(samples),
		Samples:   make([]models.SampleResult, len(samples)),
	}
	logger := s.logger.With(zap.String("run_id", report.RunID.String()))
	logger.Info("Evaluation started",
		zap.Int("samples", len(samples)),
		zap.Int("workers", s.pool.Workers()),
		zap.String("matching", string(report.Matching)))

	step := max(len(samples)/progressSteps, 1)
	onProgress := func(completed, total int) {
		if completed%step == 0 || completed == total {
			logger.Info("Evaluation progress", zap.Int("completed", completed), zap.Int("total", total))
		}
	}

	results := workqueue.Process(ctx, s.pool, samples,
		func(ctx context.Context, sample models.Sample) (models.SampleResult, error) {
			return s.ScorePair(ctx, sample), nil
		}, onProgress)

	agg := scoring.NewAggregator()
	for i, r := range results {
		sr := r.Value
		if r.Err != nil {
			// Cancelled before it started, or panicked.
			sr = models.SampleResult{
				Sample:    samples[i],
				ErrorKind: apperrors.Kind(r.Err),
				Error:     r.Err.Error(),
			}
		}
		report.Samples[i] = sr
		if sr.Failed() {
			report.Failed++
			if report.ErrorsByKind == nil {
				report.ErrorsByKind = make(map[string]int)
			}
			report.ErrorsByKind[sr.ErrorKind]++
			continue
		}
		agg.Add(sr.Scores)
	}
	report.Summary = agg.Summary()
	report.FinishedAt = time.Now().UTC()

	logger.Info("Evaluation finished",
		zap.Int("scored", report.Summary.Scored),
		zap.Int("failed", report.Failed),
		zap.Int("exact_matches", report.Summary.ExactMatches),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("evaluation interrupted: %w", err)
	}
	return report, nil
}

// WriteReport encodes report as indented JSON.
func WriteReport(w io.Writer, report *models.Report) error {
	if report == nil {
		return errors.New("nil report")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
