package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/duongtq/conveyor/internal/core/config"
	"github.com/duongtq/conveyor/internal/infra/broker"
	redisclient "github.com/duongtq/conveyor/internal/infra/redis"
	"github.com/duongtq/conveyor/internal/infra/storage"
	"github.com/duongtq/conveyor/internal/infra/storage/memory"
	"github.com/duongtq/conveyor/internal/infra/storage/postgres"
	"github.com/duongtq/conveyor/internal/pipeline/convert"
	"github.com/duongtq/conveyor/internal/pipeline/health"
	"github.com/duongtq/conveyor/internal/pipeline/reporter"
	"github.com/duongtq/conveyor/internal/pipeline/retry"
	"github.com/duongtq/conveyor/internal/pipeline/transform"
	"github.com/duongtq/conveyor/internal/pipeline/worker"
)

// Config holds the application configuration.
type Config struct {
	Port      int
	Pipelines []config.PipelineConfig
	Redis     redisclient.Config
	Database  postgres.Config

	// Sources maps pipeline names to record sources. Pipelines without an
	// entry poll an empty in-memory source (useful for wiring checks and
	// local runs).
	Sources map[string]broker.Source

	// Producers maps pipeline names to broker producers. Pipelines without
	// an entry publish to an in-memory queue.
	Producers map[string]broker.Producer
}

// Runtime is the main application struct that manages pipeline task
// lifecycles, the dead-letter store, and the health server.
type Runtime struct {
	cfg          Config
	workers      map[string]*worker.Worker
	operators    map[string]*retry.Operator
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	dlqRepo      storage.DeadLetterRepository
	log          *slog.Logger

	wg sync.WaitGroup
}

// NewRuntime creates a new Runtime instance with all dependencies initialized.
func NewRuntime(cfg Config) (*Runtime, error) {
	r := &Runtime{
		cfg:       cfg,
		workers:   make(map[string]*worker.Worker),
		operators: make(map[string]*retry.Operator),
		log:       slog.Default(),
	}

	// 1. Initialize the dead-letter store: postgres when configured, redis
	// as the lighter alternative, in-memory otherwise.
	switch {
	case cfg.Database.URL != "":
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(cfg.Database.MigrationsDir); err != nil {
			return nil, err
		}
		r.db = db
		r.dlqRepo = postgres.NewDeadLetterRepo(db)
		slog.Info("Using PostgreSQL dead-letter storage")
	case cfg.Redis.Addr != "":
		client, err := redisclient.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		r.redisClient = client
		r.dlqRepo = redisclient.NewDeadLetterRepo(client)
		slog.Info("Using Redis dead-letter storage")
	default:
		r.dlqRepo = memory.NewDeadLetterRepo()
		slog.Info("Using in-memory dead-letter storage")
	}

	// 2. Build one operator + worker per configured pipeline.
	for _, pc := range cfg.Pipelines {
		if _, exists := r.workers[pc.Name]; exists {
			return nil, fmt.Errorf("duplicate pipeline name: %q", pc.Name)
		}

		op, err := retry.NewOperator(retry.Config{
			RetryTimeout: time.Duration(pc.RetryTimeoutMs) * time.Millisecond,
			MaxDelay:     time.Duration(pc.MaxDelayMs) * time.Millisecond,
			Tolerance:    retry.ToleranceType(pc.Tolerance),
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", pc.Name, err)
		}
		op.Reporters([]retry.Reporter{
			reporter.NewLogReporter(pc.Name),
			reporter.NewDeadLetterReporter(pc.Name, r.dlqRepo),
		})
		r.operators[pc.Name] = op

		transforms, err := transform.Build(pc.Transforms)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", pc.Name, err)
		}

		source, ok := cfg.Sources[pc.Name]
		if !ok {
			source = broker.NewSliceSource()
		}
		producer, ok := cfg.Producers[pc.Name]
		if !ok {
			producer = broker.NewMemoryQueue()
		}

		r.workers[pc.Name] = worker.New(worker.Config{
			Name:         pc.Name,
			PollInterval: time.Duration(pc.PollIntervalMs) * time.Millisecond,
			Source:       source,
			Producer:     producer,
			Converter:    convert.NewJSONConverter(pc.Topic),
			Transforms:   transforms,
			Operator:     op,
		})
	}

	r.healthServer = health.NewServer(r.statuses, cfg.Port)
	return r, nil
}

// DeadLetters exposes the dead-letter repository for admin tooling.
func (r *Runtime) DeadLetters() storage.DeadLetterRepository {
	return r.dlqRepo
}

// Start launches the health server and all pipeline workers.
func (r *Runtime) Start(ctx context.Context) error {
	go func() {
		if err := r.healthServer.Start(); err != nil && err != http.ErrServerClosed {
			r.log.Error("Health server stopped", "error", err)
		}
	}()

	for name, w := range r.workers {
		r.wg.Add(1)
		go func(name string, w *worker.Worker) {
			defer r.wg.Done()
			if err := w.Start(ctx); err != nil {
				r.log.Error("Pipeline task stopped with error", "pipeline", name, "error", err)
			}
		}(name, w)
	}

	r.log.Info("Runtime started", "pipelines", len(r.workers), "port", r.cfg.Port)
	return nil
}

// Stop shuts everything down: workers first, then the health server,
// operators (flushing reporters), and storage connections.
func (r *Runtime) Stop(ctx context.Context) error {
	for _, w := range r.workers {
		_ = w.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.log.Warn("Timed out waiting for workers to stop")
	}

	if err := r.healthServer.Stop(ctx); err != nil {
		r.log.Warn("Failed to stop health server", "error", err)
	}

	for name, op := range r.operators {
		if err := op.Close(); err != nil {
			r.log.Warn("Failed to close operator", "pipeline", name, "error", err)
		}
	}

	if r.db != nil {
		_ = r.db.Close()
	}
	if r.redisClient != nil {
		_ = r.redisClient.Close()
	}

	return nil
}

func (r *Runtime) statuses() []worker.Status {
	out := make([]worker.Status, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w.GetStatus())
	}
	return out
}
