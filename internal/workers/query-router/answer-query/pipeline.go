package answerquery

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clientatech-agent/internal/common/cache"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/history"
	"clientatech-agent/internal/common/inference"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/common/metrics"
	"clientatech-agent/internal/common/observability"
	"clientatech-agent/internal/models"
	classifyintent "clientatech-agent/internal/workers/query-router/classify-intent"
	composeresponse "clientatech-agent/internal/workers/query-router/compose-response"
	executesql "clientatech-agent/internal/workers/query-router/execute-sql"
	generatesql "clientatech-agent/internal/workers/query-router/generate-sql"
)

const (
	stageCache    = "cache"
	stageClassify = "classify"
	stageGenerate = "generate"
	stageExecute  = "execute"
	stageCompose  = "compose"
)

type Classifier interface {
	Execute(ctx context.Context, input *classifyintent.Input) (*classifyintent.Output, error)
}

type Generator interface {
	Execute(ctx context.Context, input *generatesql.Input) (*generatesql.Output, error)
}

type Executor interface {
	Execute(ctx context.Context, input *executesql.Input) (*executesql.Output, error)
}

type Composer interface {
	Execute(ctx context.Context, input *composeresponse.Input) (*composeresponse.Output, error)
}

// Deps are the pipeline collaborators. Cache may be nil to disable caching;
// History and Observability may be nil.
type Deps struct {
	Classifier    Classifier
	Generator     Generator
	Executor      Executor
	Composer      Composer
	Cache         cache.Store
	History       history.Recorder
	Observability *observability.Observability
}

// Pipeline answers one question per Handle call. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	deps   Deps
	tracer trace.Tracer
	now    func() time.Time
	logger logger.Logger
}

func NewPipeline(deps Deps, log logger.Logger) *Pipeline {
	if deps.History == nil {
		deps.History = history.NopRecorder{}
	}
	return &Pipeline{
		deps:   deps,
		tracer: observability.Tracer("answer-query"),
		now:    time.Now,
		logger: log.With(map[string]interface{}{"component": "pipeline"}),
	}
}

// run carries what one request has learned so far.
type run struct {
	query  models.Query
	start  time.Time
	intent models.Intent
	stmt   *models.SQLStatement
	result *models.ResultSet
}

// Handle returns the cached answer for the question's fingerprint or runs
// the full chain and caches its answer. Every returned error is a
// *errors.StandardError carrying a user-safe message. Nothing is cached when
// any stage fails.
func (p *Pipeline) Handle(ctx context.Context, q models.Query) (*models.Response, error) {
	r := &run{query: q, start: p.now()}

	ctx, span := p.tracer.Start(ctx, "pipeline.handle", trace.WithAttributes(
		attribute.String("request_id", q.ID),
	))
	defer span.End()

	if q.Normalized == "" {
		return nil, p.fail(ctx, r, apperrors.NewInvalidQueryError("empty question"))
	}

	if resp := p.lookup(ctx, r); resp != nil {
		p.finish(ctx, r, resp, nil)
		return resp, nil
	}

	resp, err := p.compute(ctx, r)
	if err != nil {
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		return nil, p.fail(ctx, r, err)
	}

	p.store(ctx, r, resp)
	p.finish(ctx, r, resp, nil)
	return resp, nil
}

func (p *Pipeline) compute(ctx context.Context, r *run) (*models.Response, error) {
	question := r.query.Raw

	var classified *classifyintent.Output
	err := p.stage(ctx, stageClassify, func(ctx context.Context) error {
		var err error
		classified, err = p.deps.Classifier.Execute(ctx, &classifyintent.Input{Question: question})
		return err
	})
	switch {
	case errors.Is(err, classifyintent.ErrUnrecognizedIntent):
		fault := apperrors.NewClassificationFault(err)
		p.logger.Warn("classification fault, falling back to GENERAL", map[string]interface{}{
			"requestId": r.query.ID,
			"details":   fault.Details,
		})
		r.intent = models.IntentGeneral
	case err != nil:
		return nil, p.fault(ctx, stageClassify, err)
	default:
		r.intent = classified.Intent
	}
	p.logger.Info("intent_route", map[string]interface{}{
		"requestId": r.query.ID,
		"intent":    r.intent.String(),
	})

	if r.intent.RequiresData() {
		err = p.stage(ctx, stageGenerate, func(ctx context.Context) error {
			out, err := p.deps.Generator.Execute(ctx, &generatesql.Input{Question: question, Intent: r.intent})
			if err == nil {
				r.stmt = out.Statement
			}
			return err
		})
		if err != nil {
			return nil, p.fault(ctx, stageGenerate, err)
		}

		err = p.stage(ctx, stageExecute, func(ctx context.Context) error {
			out, err := p.deps.Executor.Execute(ctx, &executesql.Input{Statement: r.stmt})
			if err == nil {
				r.result = out.Result
			}
			return err
		})
		if err != nil {
			return nil, p.fault(ctx, stageExecute, err)
		}
		p.deps.Observability.RecordRows(ctx, r.intent.String(), r.result.Len())
	}

	var composed *composeresponse.Output
	err = p.stage(ctx, stageCompose, func(ctx context.Context) error {
		var err error
		composed, err = p.deps.Composer.Execute(ctx, &composeresponse.Input{
			Question: question,
			Intent:   r.intent,
			Result:   r.result,
		})
		return err
	})
	if err != nil {
		return nil, p.fault(ctx, stageCompose, err)
	}

	return &models.Response{
		RequestID:    r.query.ID,
		Text:         composed.Answer,
		Intent:       r.intent,
		Presentation: composed.Presentation,
	}, nil
}

// lookup returns a cached answer or nil. A failing store is bypassed.
func (p *Pipeline) lookup(ctx context.Context, r *run) *models.Response {
	if p.deps.Cache == nil {
		return nil
	}

	var entry *models.CacheEntry
	err := p.stage(ctx, stageCache, func(ctx context.Context) error {
		var err error
		entry, err = p.deps.Cache.Get(ctx, r.query.Fingerprint())
		return err
	})
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		r.intent = entry.Intent
		p.logger.Info("cache_hit", map[string]interface{}{
			"requestId":   r.query.ID,
			"fingerprint": r.query.Fingerprint(),
			"intent":      entry.Intent.String(),
		})
		return entry.Response(r.query.ID)
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("fault").Inc()
		p.cacheFault("get", err)
	}
	return nil
}

func (p *Pipeline) store(ctx context.Context, r *run, resp *models.Response) {
	if p.deps.Cache == nil {
		return
	}

	entry, err := models.NewCacheEntry(r.query, r.intent, r.stmt, r.result, resp, p.now())
	if err != nil {
		p.logger.Error("refusing to cache answer", map[string]interface{}{
			"requestId": r.query.ID,
			"error":     err.Error(),
		})
		return
	}
	if err := p.deps.Cache.Put(ctx, entry); err != nil {
		p.cacheFault("put", err)
		return
	}
	p.logger.Info("cache_update", map[string]interface{}{
		"requestId":   r.query.ID,
		"fingerprint": entry.Fingerprint,
		"intent":      entry.Intent.String(),
	})
}

func (p *Pipeline) cacheFault(operation string, err error) {
	fault := apperrors.NewCacheFault(operation, err)
	p.logger.Warn("cache bypassed", map[string]interface{}{
		"errorCode": string(fault.Code),
		"operation": operation,
		"details":   fault.Details,
	})
}

// stage runs fn under its own span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		span.RecordError(err)
		span.SetStatus(codes.Error, name)
	}
	return err
}

// fault maps a stage error onto the fault taxonomy.
func (p *Pipeline) fault(ctx context.Context, stage string, err error) *apperrors.StandardError {
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return apperrors.NewRequestCancelledError(err)
	case inference.IsBackendFault(err):
		return apperrors.NewBackendUnavailableError(err)
	}

	switch stage {
	case stageClassify:
		if errors.Is(err, classifyintent.ErrEmptyQuestion) {
			return apperrors.NewInvalidQueryError(err.Error())
		}
		return apperrors.NewClassificationFault(err)
	case stageGenerate:
		return apperrors.NewGenerationFault(err)
	case stageExecute:
		return apperrors.NewExecutionFault(err)
	case stageCompose:
		return apperrors.NewCompositionFault(err)
	default:
		return apperrors.NewInternalError(err)
	}
}

func (p *Pipeline) fail(ctx context.Context, r *run, err error) error {
	fault := apperrors.Normalize(err)
	p.logger.Error("query failed", map[string]interface{}{
		"requestId":     r.query.ID,
		"intent":        r.intent.String(),
		"errorCode":     string(fault.Code),
		"errorCategory": apperrors.GetErrorCategory(fault.Code),
		"details":       fault.Details,
	})
	p.finish(ctx, r, nil, fault)
	return fault
}

// finish records metrics and the history entry for a handled question.
func (p *Pipeline) finish(ctx context.Context, r *run, resp *models.Response, fault *apperrors.StandardError) {
	duration := p.now().Sub(r.start)
	outcome := "answered"
	cacheHit := false
	rec := history.Record{
		RequestID:   r.query.ID,
		Fingerprint: r.query.Fingerprint(),
		Question:    r.query.Raw,
		Intent:      r.intent.String(),
		RowCount:    r.result.Len(),
		DurationMs:  duration.Milliseconds(),
		Timestamp:   r.start.UTC(),
	}
	if resp != nil {
		cacheHit = resp.CacheHit
		rec.CacheHit = resp.CacheHit
	}
	if fault != nil {
		outcome = "failed"
		rec.FaultCode = string(fault.Code)
	}

	metrics.QueriesTotal.WithLabelValues(r.intent.String(), outcome).Inc()
	p.deps.Observability.RecordQueryProcessed(ctx, r.intent.String(), outcome, cacheHit)
	p.deps.Observability.RecordQueryDuration(ctx, duration, outcome)

	// the caller may already be gone; the record still goes out
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.deps.History.Record(recCtx, rec); err != nil {
		p.logger.Warn("history record failed", map[string]interface{}{
			"requestId": r.query.ID,
			"error":     err.Error(),
		})
	}
}
