package classifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"news_ingest/internal/domain"
)

type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeShadow   Mode = "shadow"
	ModeEnabled  Mode = "enabled"
)

type Path string

const (
	PathKeyword  Path = "keyword"
	PathModel    Path = "model"
	PathFallback Path = "fallback"
	PathSkipped  Path = "guard_skipped"
	PathShadow   Path = "shadow"
)

// Guard decides whether the model may be called. done accounts the outcome
// and cost of a granted call.
type Guard interface {
	Allow() (done func(success bool, cost int), ok bool)
}

// attempter is a Strategy that reports the telemetry of each call it makes.
type attempter interface {
	Attempt(ctx context.Context, a *domain.Article) Attempt
}

// Outcome is what the pipeline stores plus how it was reached.
type Outcome struct {
	Result Result
	Path   Path
	// Shadow holds the model verdict observed in shadow mode, if any.
	Shadow   *Result
	ModelErr error
}

// Selector runs the configured strategy per article. One Selector serves one run.
type Selector struct {
	mode    Mode
	keyword Strategy
	model   Strategy
	guard   Guard
	logger  *slog.Logger

	mu    sync.Mutex
	stats domain.ClassifierStats
	calls []domain.ModelCall
}

// NewSelector builds a per-run selector. A nil model behaves like ModeDisabled.
func NewSelector(mode Mode, keyword, model Strategy, guard Guard, logger *slog.Logger) *Selector {
	return &Selector{
		mode:    mode,
		keyword: keyword,
		model:   model,
		guard:   guard,
		logger:  logger,
	}
}

// Classify never fails: model errors are logged, recorded and replaced by the keyword verdict.
func (s *Selector) Classify(ctx context.Context, a *domain.Article) Outcome {
	kw, err := s.keyword.Classify(ctx, a)
	if err != nil {
		s.logger.Warn("keyword classification failed",
			"url", a.URL,
			"error", err,
		)
		kw = Result{Category: domain.CategoryUncategorized, Strategy: StrategyKeyword}
	}

	if s.mode == ModeDisabled || s.model == nil {
		s.count(func(st *domain.ClassifierStats) { st.KeywordOnly++ })
		return Outcome{Result: kw, Path: PathKeyword}
	}

	done, ok := s.guard.Allow()
	if !ok {
		s.count(func(st *domain.ClassifierStats) { st.BudgetSkipped++ })
		if s.mode == ModeShadow {
			return Outcome{Result: kw, Path: PathShadow}
		}
		return Outcome{Result: kw, Path: PathSkipped}
	}

	att := s.attempt(ctx, a)
	done(att.Err == nil, att.Cost())
	s.record(att)

	if s.mode == ModeShadow {
		if att.Err != nil {
			s.logger.Warn("shadow classification failed",
				"url", a.URL,
				"error", att.Err,
			)
			return Outcome{Result: kw, Path: PathShadow, ModelErr: att.Err}
		}
		s.logger.Info("shadow classification",
			"url", a.URL,
			"keyword_category", kw.Category,
			"model_category", att.Result.Category,
			"model_country", att.Result.Country,
			"agree", kw.Category == att.Result.Category,
		)
		shadow := att.Result
		return Outcome{Result: kw, Path: PathShadow, Shadow: &shadow}
	}

	if att.Err != nil {
		s.logger.Warn("model classification failed, falling back to keywords",
			"url", a.URL,
			"error", att.Err,
		)
		s.count(func(st *domain.ClassifierStats) { st.Fallbacks++ })
		return Outcome{Result: kw, Path: PathFallback, ModelErr: att.Err}
	}

	return Outcome{Result: att.Result, Path: PathModel}
}

func (s *Selector) attempt(ctx context.Context, a *domain.Article) Attempt {
	if m, ok := s.model.(attempter); ok {
		return m.Attempt(ctx, a)
	}

	start := time.Now()
	res, err := s.model.Classify(ctx, a)
	call := domain.ModelCall{
		ArticleURL: a.URL,
		Latency:    time.Since(start),
		Status:     domain.ModelCallOK,
		CreatedAt:  start.UTC(),
	}
	if err != nil {
		call.Status = callStatus(err)
		call.FallbackReason = err.Error()
	}
	return Attempt{Result: res, Call: call, Err: err}
}

func (s *Selector) Stats() domain.ClassifierStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Calls returns the telemetry of every model call made so far.
func (s *Selector) Calls() []domain.ModelCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ModelCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Selector) record(att Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, att.Call)
	s.stats.ModelCalls++
	s.stats.TokensUsed += att.Cost()
	if att.Err != nil {
		s.stats.ModelFailures++
	}
}

func (s *Selector) count(fn func(*domain.ClassifierStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.stats)
}
