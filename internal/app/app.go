// Package app wires configuration into a ready pipeline. Both the worker
// manager and the CLI build through it.
package app

import (
	"context"
	"fmt"
	"time"

	"clientatech-agent/internal/common/cache"
	"clientatech-agent/internal/common/config"
	"clientatech-agent/internal/common/database"
	apperrors "clientatech-agent/internal/common/errors"
	"clientatech-agent/internal/common/history"
	commonhttp "clientatech-agent/internal/common/http"
	"clientatech-agent/internal/common/inference"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/common/observability"
	"clientatech-agent/internal/common/server"
	"clientatech-agent/internal/models"
	answerquery "clientatech-agent/internal/workers/query-router/answer-query"
	classifyintent "clientatech-agent/internal/workers/query-router/classify-intent"
	composeresponse "clientatech-agent/internal/workers/query-router/compose-response"
	executesql "clientatech-agent/internal/workers/query-router/execute-sql"
	generatesql "clientatech-agent/internal/workers/query-router/generate-sql"
	invalidatecache "clientatech-agent/internal/workers/query-router/invalidate-cache"
)

// App holds every long-lived dependency. Close releases them in reverse
// order of creation.
type App struct {
	Config   *config.Config
	Dataset  *database.Dataset
	Schema   models.SchemaDescription
	Cache    cache.Store
	History  history.Recorder
	Recent   HistoryReader
	Pipeline *answerquery.Pipeline

	Classifier  *classifyintent.Handler
	Generator   *generatesql.Handler
	Executor    *executesql.Handler
	Composer    *composeresponse.Handler
	Answer      *answerquery.Handler
	Invalidator *invalidatecache.Handler

	Checks map[string]server.Check

	obs     *observability.Observability
	closers []func() error
	logger  logger.Logger
}

// HistoryReader lists recently handled questions, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, size int) ([]history.Record, error)
}

// Models overrides the inference backend. Nil fields are built from config.
type Models struct {
	Logic   inference.Model
	Persona inference.Model
}

// Build opens the dataset, reads its schema and assembles the pipeline.
// Anything opened before a failure is closed again.
func Build(ctx context.Context, cfg *config.Config, override Models, log logger.Logger) (_ *App, err error) {
	a := &App{
		Config: cfg,
		Checks: map[string]server.Check{},
		obs:    observability.New(cfg.App.Name),
		logger: log,
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()
	a.closers = append(a.closers, func() error { a.obs.Shutdown(); return nil })

	if err := a.openDataset(ctx); err != nil {
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		return nil, err
	}
	if err := a.openHistory(ctx); err != nil {
		return nil, err
	}

	catalogue, err := generatesql.LoadCatalogue(cfg.Pipeline.FewShotPath)
	if err != nil {
		return nil, err
	}
	if err := catalogue.CheckDialect(a.Dataset.Dialect); err != nil {
		return nil, err
	}

	logic, persona := a.models(override)

	a.Classifier = classifyintent.NewHandler(classifyintent.LoadConfig(cfg), logic, log)
	a.Generator = generatesql.NewHandler(generatesql.LoadConfig(cfg), logic, a.Schema, catalogue, log)
	a.Executor = executesql.NewHandler(executesql.LoadConfig(cfg), a.Dataset.DB, log)
	a.Composer = composeresponse.NewHandler(composeresponse.LoadConfig(cfg), persona, log)

	a.Pipeline = answerquery.NewPipeline(answerquery.Deps{
		Classifier:    a.Classifier,
		Generator:     a.Generator,
		Executor:      a.Executor,
		Composer:      a.Composer,
		Cache:         a.Cache,
		History:       a.History,
		Observability: a.obs,
	}, log)
	a.Answer = answerquery.NewHandler(answerquery.LoadConfig(cfg), a.Pipeline, log)
	a.Invalidator = invalidatecache.NewHandler(invalidatecache.LoadConfig(cfg), a.Cache, log)

	log.Info("pipeline ready", map[string]interface{}{
		"dialect":  a.Dataset.Dialect,
		"tables":   len(a.Schema.Tables),
		"cache":    cfg.Cache.Backend,
		"logic":    logic.Name(),
		"persona":  persona.Name(),
		"examples": catalogue.ExampleCount(),
	})
	return a, nil
}

func (a *App) openDataset(ctx context.Context) error {
	ds, err := database.OpenDataset(a.Config.Database)
	if err != nil {
		return err
	}
	a.Dataset = ds
	a.closers = append(a.closers, ds.Close)

	if err := ds.Ping(ctx); err != nil {
		return fmt.Errorf("dataset unreachable: %w", err)
	}
	a.Checks["dataset"] = ds.Ping

	schema, err := executesql.IntrospectSchema(ctx, ds.DB, ds.Dialect, ds.Tables)
	if err != nil {
		return err
	}
	a.Schema = schema
	return nil
}

// openCache never fails the build on an unreachable store. Redis degrades to
// misses at query time; a sqlite store that cannot be opened leaves caching
// disabled. Only an unknown backend is an error.
func (a *App) openCache(ctx context.Context) error {
	cfg := a.Config.Cache
	ttl := config.GetDuration(cfg.TTL)

	var backing cache.Store
	switch cfg.Backend {
	case "redis":
		client := database.NewRedis(a.Config.Database.Redis)
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx); err != nil {
			a.logger.Warn("cache store unreachable", map[string]interface{}{"backend": "redis", "error": err.Error()})
		}
		a.Checks["cache"] = client.Ping
		backing = cache.NewRedisStore(client.Client, cfg.KeyPrefix, ttl)
	case "sqlite":
		client, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			a.cacheDisabled(err)
			return nil
		}
		a.closers = append(a.closers, client.Close)
		store, err := cache.NewSQLiteStore(client.DB, ttl)
		if err != nil {
			a.cacheDisabled(err)
			return nil
		}
		a.Checks["cache"] = client.Ping
		backing = store
	default:
		return fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}

	l1TTL := config.GetDuration(cfg.L1TTL)
	if ttl > 0 && l1TTL > ttl {
		l1TTL = ttl
	}
	if cfg.L1Size > 0 {
		a.Cache = cache.NewLayeredStore(backing, cfg.L1Size, l1TTL)
		return nil
	}
	a.Cache = backing
	return nil
}

func (a *App) cacheDisabled(err error) {
	fault := apperrors.NewCacheFault("open", err)
	a.logger.Warn("cache store unavailable, caching disabled", map[string]interface{}{
		"backend": a.Config.Cache.Backend,
		"path":    a.Config.Cache.SQLitePath,
		"code":    string(fault.Code),
		"error":   err.Error(),
	})
}

func (a *App) openHistory(ctx context.Context) error {
	esCfg := a.Config.Database.Elasticsearch
	if !esCfg.Enabled {
		a.History = history.NopRecorder{}
		return nil
	}

	client, err := database.NewElasticsearch(esCfg)
	if err != nil {
		return err
	}
	if err := client.EnsureIndex(ctx, esCfg.HistoryIndex, history.IndexMapping); err != nil {
		a.logger.Warn("history index unavailable", map[string]interface{}{"index": esCfg.HistoryIndex, "error": err.Error()})
	}
	a.Checks["history"] = client.Ping

	recorder := history.NewElasticRecorder(client.Client, esCfg.HistoryIndex)
	a.History = recorder
	a.Recent = recorder
	return nil
}

func (a *App) models(override Models) (logic, persona inference.Model) {
	cfg := a.Config.Inference
	backoff := config.GetDuration(cfg.RetryBackoff)

	ollama := inference.NewOllamaClient(cfg.BaseURL, commonhttp.NewClient(cfg.RequestsPerSecond, cfg.Burst), a.logger)

	logic = override.Logic
	if logic == nil {
		logic = ollama.Model(cfg.LogicModel)
	}
	persona = override.Persona
	if persona == nil {
		persona = ollama.Model(cfg.PersonaModel)
	}
	return inference.WithRetry(logic, backoff, a.logger), inference.WithRetry(persona, backoff, a.logger)
}

// Ask answers one question through the pipeline.
func (a *App) Ask(ctx context.Context, question string) (*models.Response, error) {
	timeout := config.GetDuration(a.Config.Pipeline.RequestTimeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.Pipeline.Handle(ctx, models.NewQuery(question, time.Now()))
}

func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
