// cmd/worker-manager/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"clientatech-agent/internal/app"
	"clientatech-agent/internal/common/camunda"
	"clientatech-agent/internal/common/config"
	"clientatech-agent/internal/common/logger"
	"clientatech-agent/internal/common/observability"
	"clientatech-agent/internal/common/server"
	"clientatech-agent/pkg/registry"

	aq "clientatech-agent/internal/workers/query-router/answer-query"
	ci "clientatech-agent/internal/workers/query-router/classify-intent"
	cr "clientatech-agent/internal/workers/query-router/compose-response"
	es "clientatech-agent/internal/workers/query-router/execute-sql"
	gs "clientatech-agent/internal/workers/query-router/generate-sql"
	ic "clientatech-agent/internal/workers/query-router/invalidate-cache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(cfg.Tracing, cfg.App.Name, cfg.App.Version)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}

	a, err := app.Build(ctx, cfg, app.Models{}, log)
	if err != nil {
		zapLog.Fatal("pipeline build failed", zap.Error(err))
	}

	// --- Zeebe workers ---
	var (
		zeebe   *camunda.Client
		workers *camunda.Workers
	)
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, camunda.ClientConfigFrom(cfg.Camunda))
		if err != nil {
			zapLog.Fatal("zeebe connection failed", zap.Error(err))
		}
		a.Checks["zeebe"] = zeebe.HealthCheck

		handlers := jobHandlers(a)
		checkRegistry(cfg.Camunda.RegistryPath, handlers, log)

		workers = camunda.NewWorkers(zeebe.Zeebe(), log)
		for taskType, handle := range handlers {
			workers.Register(taskType, config.GetWorkerConfig(cfg, taskType), handle)
		}
		zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.TaskTypes()))
	} else {
		zapLog.Info("Camunda disabled, serving HTTP only")
	}

	// --- Health, metrics and query API ---
	srv := server.New(a.Pipeline, a.Cache, a.Checks, config.GetDuration(cfg.Pipeline.RequestTimeout), log)
	go func() {
		if err := srv.Start(cfg.Server.Address); err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if workers != nil {
		workers.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := a.Close(); err != nil {
		zapLog.Error("Error closing pipeline resources", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("Error flushing traces", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// jobHandlers maps every task type this binary serves to its handler. The
// stage workers let a BPMN process run the chain step by step;
// answer-customer-query runs it in one job.
func jobHandlers(a *app.App) map[string]camunda.JobHandler {
	return map[string]camunda.JobHandler{
		aq.TaskType: a.Answer.Handle,
		ci.TaskType: a.Classifier.Handle,
		gs.TaskType: a.Generator.Handle,
		es.TaskType: a.Executor.Handle,
		cr.TaskType: a.Composer.Handle,
		ic.TaskType: a.Invalidator.Handle,
	}
}

// checkRegistry compares the served task types with the activity catalogue
// process designers model against. Drift is logged, not fatal.
func checkRegistry(path string, handlers map[string]camunda.JobHandler, log logger.Logger) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("activity registry unavailable", map[string]interface{}{"path": path, "error": err.Error()})
		return
	}
	served := make([]string, 0, len(handlers))
	for t := range handlers {
		served = append(served, t)
	}
	if err := reg.Check(served); err != nil {
		log.Warn("activity registry out of date", map[string]interface{}{"error": err.Error()})
	}
}
