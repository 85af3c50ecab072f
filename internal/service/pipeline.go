package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"news_ingest/internal/budget"
	"news_ingest/internal/classifier"
	"news_ingest/internal/domain"
	"news_ingest/internal/fingerprint"
	"news_ingest/internal/quality"
	"news_ingest/internal/textclean"
)

const (
	// Entries with less cleaned content than this are sent to the extractor.
	minFeedContentChars = 200
	maxSummaryChars     = 500
	relevancePassMark   = 3.0
)

var errMissingURL = errors.New("entry has no url")

type PipelineConfig struct {
	Categories       domain.Categories
	QualityThreshold float64
	MaxAge           time.Duration
	DefaultLanguage  string
	Concurrency      int
	RateLimitDelay   time.Duration
	ClassifierMode   classifier.Mode
	Budget           budget.Config
}

// Deps are the collaborators of a Pipeline. Extractor, Model, Publisher and
// Indexer may be nil.
type Deps struct {
	Sources   []Source
	Articles  ArticleStore
	Telemetry TelemetryStore
	TxManager TransactionManager
	Extractor Extractor
	Model     classifier.Strategy
	Publisher Publisher
	Indexer   Indexer
	Index     *fingerprint.Index
	Canon     *fingerprint.Canonicalizer
	Scorer    *quality.Scorer
}

// Pipeline turns source entries into stored, deduplicated, classified and
// scored articles. One Run corresponds to one job.
type Pipeline struct {
	deps    Deps
	cfg     PipelineConfig
	keyword *classifier.Keyword
	logger  *slog.Logger
	now     func() time.Time
}

func NewPipeline(deps Deps, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if len(cfg.Categories) == 0 {
		cfg.Categories = domain.DefaultCategories
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.ClassifierMode == "" {
		cfg.ClassifierMode = classifier.ModeDisabled
	}
	if deps.Index == nil {
		deps.Index = fingerprint.NewIndex(0)
	}
	if deps.Canon == nil {
		deps.Canon = fingerprint.NewCanonicalizer(nil)
	}
	if deps.Scorer == nil {
		deps.Scorer = quality.NewScorer(nil, nil)
	}

	return &Pipeline{
		deps:    deps,
		cfg:     cfg,
		keyword: classifier.NewKeyword(cfg.Categories),
		logger:  logger,
		now:     time.Now,
	}
}

type entryOutcome int

const (
	outcomeProcessed entryOutcome = iota
	outcomeFiltered
	outcomeDuplicate
)

type entryResult struct {
	outcome entryOutcome
	// scored is set once the entry passed dedup and got a quality score.
	scored *domain.Article
}

// Run processes every configured source once. Entry and source failures are
// counted; only a *PersistenceError or cancellation of ctx fails the run.
func (p *Pipeline) Run(ctx context.Context, jobID string) (*domain.RunStats, error) {
	start := p.now()
	logger := p.logger.With("job_id", jobID)

	logger.Info("starting run",
		"sources", len(p.deps.Sources),
		"classifier_mode", p.cfg.ClassifierMode,
		"concurrency", p.cfg.Concurrency,
	)

	selector := classifier.NewSelector(
		p.cfg.ClassifierMode,
		p.keyword,
		p.deps.Model,
		budget.NewGuard(p.cfg.Budget),
		logger,
	)

	runs := make([]sourceRun, len(p.deps.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, src := range p.deps.Sources {
		g.Go(func() (err error) {
			// errgroup does not carry panics to Wait.
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("source %s panicked: %v", src.Name(), r)
				}
			}()
			runs[i], err = p.runSource(gctx, jobID, src, selector, logger)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics := mergeSourceRuns(runs)
	stats := &domain.RunStats{
		JobID:      jobID,
		Classifier: selector.Stats(),
	}
	for _, m := range metrics {
		stats.Add(m)
	}

	calls := selector.Calls()
	err := p.deps.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := p.deps.Telemetry.RecordSourceMetrics(txCtx, metrics); err != nil {
			return fmt.Errorf("record source metrics: %w", err)
		}
		if len(calls) == 0 {
			return nil
		}
		if err := p.deps.Telemetry.RecordModelCalls(txCtx, jobID, calls); err != nil {
			return fmt.Errorf("record model calls: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "record run telemetry", Err: err}
	}

	stats.Duration = p.now().Sub(start)

	logger.Info("run completed",
		"found", stats.Found,
		"processed", stats.Processed,
		"filtered", stats.Filtered,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
		"model_calls", stats.Classifier.ModelCalls,
		"model_failures", stats.Classifier.ModelFailures,
		"fallbacks", stats.Classifier.Fallbacks,
		"budget_skipped", stats.Classifier.BudgetSkipped,
		"tokens_used", stats.Classifier.TokensUsed,
		"duration", stats.Duration,
	)

	return stats, nil
}

// sourceRun is the outcome of one configured source before metrics of sources
// sharing a canonical name are merged.
type sourceRun struct {
	metric domain.SourceMetric
	tally  sourceTally
}

func (p *Pipeline) runSource(
	ctx context.Context,
	jobID string,
	src Source,
	selector *classifier.Selector,
	logger *slog.Logger,
) (run sourceRun, err error) {
	start := p.now()
	name := p.deps.Canon.Canonical(src.Name())
	logger = logger.With("source", name)

	run.metric = domain.SourceMetric{
		JobID:      jobID,
		Source:     name,
		Categories: make(map[string]int),
	}
	m := &run.metric
	defer func() {
		m.Duration = p.now().Sub(start)
	}()

	entries, fetchErr := src.Fetch(ctx)
	if fetchErr != nil {
		logger.Warn("source fetch failed", "error", fetchErr)
		m.Errors++
		return run, nil
	}
	m.Found = len(entries)

	for i, entry := range entries {
		if ctx.Err() != nil {
			return run, fmt.Errorf("run interrupted: %w", ctx.Err())
		}
		if i > 0 && p.cfg.RateLimitDelay > 0 {
			select {
			case <-ctx.Done():
				return run, fmt.Errorf("run interrupted: %w", ctx.Err())
			case <-time.After(p.cfg.RateLimitDelay):
			}
		}

		res, entryErr := p.processEntry(ctx, jobID, name, entry, selector, logger)
		if entryErr != nil {
			var perr *PersistenceError
			if errors.As(entryErr, &perr) {
				return run, entryErr
			}
			logger.Warn("entry failed", "url", entry.URL, "error", entryErr)
			m.Errors++
			continue
		}

		run.tally.add(res.scored)
		switch res.outcome {
		case outcomeProcessed:
			m.Processed++
		case outcomeFiltered:
			m.Filtered++
		case outcomeDuplicate:
			m.Duplicates++
		}
	}

	logger.Info("source completed",
		"found", m.Found,
		"processed", m.Processed,
		"filtered", m.Filtered,
		"duplicates", m.Duplicates,
		"errors", m.Errors,
	)

	return run, nil
}

// mergeSourceRuns folds runs that share a canonical source name into one
// metric, keeping the order in which names first appear. Durations add up.
func mergeSourceRuns(runs []sourceRun) []domain.SourceMetric {
	metrics := make([]domain.SourceMetric, 0, len(runs))
	tallies := make([]sourceTally, 0, len(runs))
	pos := make(map[string]int, len(runs))

	for _, r := range runs {
		i, ok := pos[r.metric.Source]
		if !ok {
			pos[r.metric.Source] = len(metrics)
			metrics = append(metrics, r.metric)
			tallies = append(tallies, r.tally)
			continue
		}
		m := &metrics[i]
		m.Found += r.metric.Found
		m.Processed += r.metric.Processed
		m.Filtered += r.metric.Filtered
		m.Duplicates += r.metric.Duplicates
		m.Errors += r.metric.Errors
		m.Duration += r.metric.Duration
		tallies[i].merge(r.tally)
	}

	for i := range metrics {
		tallies[i].apply(&metrics[i])
	}
	return metrics
}

func (p *Pipeline) processEntry(
	ctx context.Context,
	jobID string,
	sourceName string,
	entry domain.Entry,
	selector *classifier.Selector,
	logger *slog.Logger,
) (entryResult, error) {
	if p.tooOld(entry.PublishedAt) {
		return entryResult{outcome: outcomeFiltered}, nil
	}

	draft, err := p.buildDraft(ctx, jobID, sourceName, entry, logger)
	if err != nil {
		return entryResult{}, err
	}
	if p.tooOld(draft.PublishedDate) {
		return entryResult{outcome: outcomeFiltered}, nil
	}

	fp := fingerprint.Identify(draft)
	draft.URLKey = fp.URLKey
	draft.ContentHash = fp.ContentHash

	dup, err := p.isDuplicate(ctx, fp)
	if err != nil {
		return entryResult{}, err
	}
	if dup {
		return entryResult{outcome: outcomeDuplicate}, nil
	}

	outcome := selector.Classify(ctx, draft)
	outcome.Result.Apply(draft)
	draft.QualityScore = p.deps.Scorer.Score(draft)

	res := entryResult{scored: draft}
	if draft.QualityScore < p.cfg.QualityThreshold {
		logger.Debug("below quality threshold",
			"url", draft.URL,
			"score", draft.QualityScore,
			"threshold", p.cfg.QualityThreshold,
		)
		res.outcome = outcomeFiltered
		return res, nil
	}

	id, err := p.deps.Articles.InsertArticle(ctx, draft)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		p.deps.Index.Register(fp)
		res.outcome = outcomeDuplicate
		return res, nil
	case err != nil:
		return res, &PersistenceError{Op: "insert article", Err: err}
	}

	draft.ID = id
	p.deps.Index.Register(fp)
	p.announce(ctx, draft, logger)

	logger.Debug("stored article",
		"id", id,
		"url", draft.URL,
		"category", draft.Category,
		"path", outcome.Path,
		"score", draft.QualityScore,
	)

	res.outcome = outcomeProcessed
	return res, nil
}

func (p *Pipeline) buildDraft(
	ctx context.Context,
	jobID string,
	sourceName string,
	entry domain.Entry,
	logger *slog.Logger,
) (*domain.Article, error) {
	link := strings.TrimSpace(entry.URL)
	if link == "" {
		return nil, errMissingURL
	}

	content := textclean.Clean(cmp.Or(entry.Content, entry.Summary))
	summary := textclean.Truncate(textclean.Clean(entry.Summary), maxSummaryChars)
	image := entry.ImageURL

	a := &domain.Article{
		URL:           link,
		Title:         textclean.Clean(entry.Title),
		Source:        p.deps.Canon.Canonical(cmp.Or(entry.SourceLabel, sourceName)),
		Content:       content,
		PublishedDate: entry.PublishedAt,
		ScrapedAt:     p.now().UTC(),
		Category:      domain.CategoryUncategorized,
		Language:      p.cfg.DefaultLanguage,
		JobID:         &jobID,
	}

	if p.deps.Extractor != nil && utf8.RuneCountInString(content) < minFeedContentChars {
		page, err := p.deps.Extractor.Extract(ctx, link)
		switch {
		case err != nil && content == "":
			return nil, err
		case err != nil:
			logger.Debug("extraction failed, keeping feed content", "url", link, "error", err)
		default:
			if utf8.RuneCountInString(page.Content) > utf8.RuneCountInString(a.Content) {
				a.Content = page.Content
			}
			a.Title = cmp.Or(a.Title, page.Title)
			summary = cmp.Or(summary, textclean.Truncate(page.Excerpt, maxSummaryChars))
			image = cmp.Or(image, page.ImageURL)
			if a.PublishedDate == nil {
				a.PublishedDate = page.PublishedAt
			}
		}
	}

	if summary != "" {
		a.Summary = &summary
	}
	if image != "" {
		a.ImageURL = &image
	}
	return a, nil
}

func (p *Pipeline) tooOld(published *time.Time) bool {
	if published == nil || p.cfg.MaxAge <= 0 {
		return false
	}
	return p.now().Sub(*published) > p.cfg.MaxAge
}

// isDuplicate consults the in-process index first and the store second.
func (p *Pipeline) isDuplicate(ctx context.Context, fp domain.Fingerprint) (bool, error) {
	if p.deps.Index.IsDuplicate(fp) {
		return true, nil
	}

	exists, err := p.deps.Articles.ExistsByURLOrHash(ctx, fp)
	if err != nil {
		return false, &PersistenceError{Op: "find article", Err: err}
	}
	if exists {
		p.deps.Index.Register(fp)
	}
	return exists, nil
}

// announce publishes and indexes a stored article. Failures are logged only.
func (p *Pipeline) announce(ctx context.Context, a *domain.Article, logger *slog.Logger) {
	if p.deps.Publisher != nil {
		if err := p.deps.Publisher.PublishArticle(ctx, a); err != nil {
			logger.Warn("failed to publish article", "id", a.ID, "error", err)
		}
	}
	if p.deps.Indexer != nil {
		if err := p.deps.Indexer.IndexArticle(ctx, a); err != nil {
			logger.Warn("failed to index article", "id", a.ID, "error", err)
		}
	}
}

// sourceTally accumulates aggregates over every scored article of a source.
type sourceTally struct {
	scored     int
	qualitySum float64
	euCount    int
	euSum      float64
	passed     int
	categories map[string]int
}

func (t *sourceTally) add(a *domain.Article) {
	if a == nil {
		return
	}
	t.scored++
	t.qualitySum += a.QualityScore
	if a.EURelevance != nil {
		t.euCount++
		t.euSum += *a.EURelevance
		if *a.EURelevance >= relevancePassMark {
			t.passed++
		}
	}
	if t.categories == nil {
		t.categories = make(map[string]int)
	}
	t.categories[a.Category]++
}

func (t *sourceTally) merge(o sourceTally) {
	t.scored += o.scored
	t.qualitySum += o.qualitySum
	t.euCount += o.euCount
	t.euSum += o.euSum
	t.passed += o.passed
	for c, n := range o.categories {
		if t.categories == nil {
			t.categories = make(map[string]int)
		}
		t.categories[c] += n
	}
}

func (t *sourceTally) apply(m *domain.SourceMetric) {
	m.PassedRelevance = t.passed
	if t.scored > 0 {
		avg := round2(t.qualitySum / float64(t.scored))
		m.AvgQuality = &avg
	}
	if t.euCount > 0 {
		avg := round2(t.euSum / float64(t.euCount))
		m.AvgEURelevance = &avg
	}
	for c, n := range t.categories {
		m.Categories[c] = n
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
