package lint

import (
	"context"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/davidahmann/specgate/internal/analyzer"
	"github.com/davidahmann/specgate/internal/logging"
	"github.com/davidahmann/specgate/internal/metrics"
	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/internal/scorer"
	"github.com/davidahmann/specgate/internal/suggest"
	"github.com/davidahmann/specgate/internal/validator"
	"github.com/davidahmann/specgate/pkg/types"
)

const defaultBatchConcurrency = 4

// Engine runs analysis, validation, scoring and suggestion for one document.
// It has no external side effects beyond logging and metrics.
type Engine struct {
	analyzer  *analyzer.Analyzer
	validator *validator.Validator
	scorer    *scorer.Scorer
	suggester *suggest.Suggester
	rulesHash string

	Log              *logging.Logger
	Metrics          *metrics.Metrics
	Now              func() time.Time
	BatchConcurrency int
}

func NewEngine(compiled *rules.Compiled) *Engine {
	return &Engine{
		analyzer:         analyzer.New(compiled),
		validator:        validator.New(compiled),
		scorer:           scorer.New(compiled.Table),
		suggester:        suggest.New(compiled.Table.Suggestions),
		rulesHash:        compiled.Hash,
		Log:              logging.Nop(),
		Now:              time.Now,
		BatchConcurrency: defaultBatchConcurrency,
	}
}

func (e *Engine) RulesHash() string {
	return e.rulesHash
}

// AnalyzeAndScore assesses doc at the given depth. The only error is an
// invalid depth; malformed content is reported through violations.
func (e *Engine) AnalyzeAndScore(ctx context.Context, doc types.Document, depth types.CheckDepth) (types.QualityResult, error) {
	if err := ctx.Err(); err != nil {
		return types.QualityResult{}, err
	}
	start := e.Now()

	text := norm.NFC.String(doc.Text)
	title := norm.NFC.String(doc.Title)

	violations, err := e.validator.ValidateTitled(text, title, depth)
	if err != nil {
		return types.QualityResult{}, err
	}
	structural := e.analyzer.Analyze(text, title)
	if structural.Error != "" {
		e.Log.Warn().Str("title", doc.Title).Str("error", structural.Error).Msg("document has no content")
	}

	score := e.scorer.Score(structural, violations)
	level := e.scorer.Level(score)
	elapsed := e.Now().Sub(start)

	result := types.QualityResult{
		Score:       score,
		Level:       level,
		Violations:  violations,
		Suggestions: e.suggester.Suggest(violations),
		Metadata: types.ResultMetadata{
			CheckDepth:       depth,
			ContentLength:    utf8.RuneCountInString(text),
			Timestamp:        start.UTC().Format(time.RFC3339),
			QualityLevel:     level,
			ProcessingResult: e.scorer.Process(level, score),
			ProcessingTimeMS: elapsed.Milliseconds(),
			Structure:        structural,
			RulesHash:        e.rulesHash,
		},
	}

	e.Log.LogLint(types.TitleOrFirstHeading(doc), string(depth), score, string(level), len(violations), elapsed)
	e.Metrics.ObserveLint(string(level), violationTypes(violations), elapsed)
	return result, nil
}

type BatchItem struct {
	Index    int                 `json:"index"`
	Title    string              `json:"title"`
	URL      string              `json:"url,omitempty"`
	Result   types.QualityResult `json:"result"`
	Error    string              `json:"error,omitempty"`
	Failed   bool                `json:"failed"`
	Document types.Document      `json:"-"`
}

type BatchSummary struct {
	Total        int     `json:"total"`
	Successful   int     `json:"successful"`
	Failed       int     `json:"failed"`
	AverageScore float64 `json:"average_score"`
}

type BatchResult struct {
	Items   []BatchItem  `json:"items"`
	Summary BatchSummary `json:"summary"`
}

// Batch lints docs concurrently and returns items in input order. A document
// that scores 0 or cannot be assessed counts as failed.
func (e *Engine) Batch(ctx context.Context, docs []types.Document, depth types.CheckDepth) (BatchResult, error) {
	if !depth.Valid() {
		return BatchResult{}, validator.ErrInvalidDepth
	}
	items := make([]BatchItem, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	limit := e.BatchConcurrency
	if limit <= 0 {
		limit = defaultBatchConcurrency
	}
	g.SetLimit(limit)

	for i, doc := range docs {
		g.Go(func() error {
			item := BatchItem{Index: i, Title: doc.Title, URL: doc.URL, Document: doc}
			res, err := e.AnalyzeAndScore(gctx, doc, depth)
			if err != nil {
				item.Error = err.Error()
				item.Failed = true
			} else {
				item.Result = res
				item.Failed = res.Score == 0
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	summary := BatchSummary{Total: len(items)}
	total := 0
	for _, it := range items {
		if it.Failed {
			summary.Failed++
		} else {
			summary.Successful++
		}
		total += it.Result.Score
	}
	if len(items) > 0 {
		summary.AverageScore = float64(total) / float64(len(items))
	}

	e.Log.Info().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Float64("average_score", summary.AverageScore).
		Msg("batch lint complete")
	return BatchResult{Items: items, Summary: summary}, nil
}

func violationTypes(violations []types.Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Type)
	}
	return out
}
