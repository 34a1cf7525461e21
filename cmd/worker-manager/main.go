// cmd/worker-manager/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"spark-workers/internal/catalog"
	awsclient "spark-workers/internal/common/aws"
	"spark-workers/internal/common/camunda"
	"spark-workers/internal/common/config"
	"spark-workers/internal/common/database"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/observability"
	"spark-workers/internal/common/validation"
	"spark-workers/internal/grants"
	"spark-workers/internal/usage"
	"spark-workers/pkg/registry"

	// Grant workers (4)
	fg "spark-workers/internal/workers/grants/filter-grants"
	mg "spark-workers/internal/workers/grants/match-grants"
	sg "spark-workers/internal/workers/grants/score-grant"
	srg "spark-workers/internal/workers/grants/search-grants"

	// Idea, usage and notification workers (3)
	sgd "spark-workers/internal/workers/communication/send-grant-digest"
	ei "spark-workers/internal/workers/ideas/export-ideas"
	cul "spark-workers/internal/workers/infrastructure/check-usage-limit"
)

var connectRetry = &camunda.RetryConfig{
	MaxRetries: 5,
	BaseDelay:  2 * time.Second,
	MaxDelay:   20 * time.Second,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.App.Name)
	log.Info("starting worker manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs, err := observability.New(observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
	})
	if err != nil {
		fatal(log, "failed to initialise observability", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(ctx); err != nil {
			log.Error("observability shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: cfg.Camunda.UsePlaintext,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		fatal(log, "failed to connect to zeebe", err)
	}
	log.Info("connected to zeebe", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	conns, err := connect(ctx, cfg, log)
	if err != nil {
		_ = zeebe.Close()
		fatal(log, "failed to connect to backing stores", err)
	}

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		fatal(log, "failed to load activity registry", err)
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		fatal(log, "failed to compile activity schemas", err)
	}

	awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWSRegion)
	if err != nil {
		fatal(log, "failed to load AWS config", err)
	}

	scorer := grants.NewScorer(grants.WithRelationTable(
		grants.DefaultRelationTable().Merge(cfg.Matching.RelatedIndustry),
	))
	matcher := grants.NewMatcher(scorer,
		grants.WithMinScore(cfg.Matching.MinScore),
		grants.WithDefaultTopN(cfg.Matching.DefaultTopN),
	)
	repo := catalog.NewRepository(conns.Postgres, conns.Redis, log,
		catalog.WithCatalogTTL(cfg.Matching.CatalogTTL()),
		catalog.WithProfileTTL(cfg.Matching.ProfileTTL()),
	)
	searcher := catalog.NewSearcher(conns.Elasticsearch, cfg.Database.Elasticsearch.GrantsIndex)
	limiter := usage.NewLimiter(usage.NewSubscriptionStore(conns.Postgres), conns.Redis, cfg.Usage.Limits, log)

	handlers := map[string]camunda.HandlerFunc{
		mg.TaskType:  mg.NewHandler(mg.LoadConfig(cfg), repo, matcher, validator, obs, log).Handle,
		sg.TaskType:  sg.NewHandler(sg.LoadConfig(cfg), matcher, validator, log).Handle,
		fg.TaskType:  fg.NewHandler(fg.LoadConfig(cfg), repo, matcher, validator, log).Handle,
		srg.TaskType: srg.NewHandler(srg.LoadConfig(cfg), searcher, validator, log).Handle,
		cul.TaskType: cul.NewHandler(cul.LoadConfig(cfg), limiter, validator, log).Handle,
		ei.TaskType:  ei.NewHandler(ei.LoadConfig(cfg), repo, validator, log).Handle,
		sgd.TaskType: sgd.NewHandler(sgd.LoadConfig(cfg), repo,
			awsclient.NewSES(awsCfg), awsclient.NewSNS(awsCfg), validator, log).Handle,
	}

	var workers []worker.JobWorker
	for taskType, h := range handlers {
		w := camunda.StartWorker(
			zeebe.GetClient(),
			taskType,
			config.GetWorkerConfig(cfg, taskType),
			camunda.Instrument(taskType, h, obs, log),
			log,
		)
		if w != nil {
			workers = append(workers, w)
		}
	}
	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           newMux(conns, zeebe),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close waits for in-flight jobs to finish.
	for _, w := range workers {
		w.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("health/metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("error closing zeebe client", map[string]interface{}{"error": err.Error()})
	}
	if err := conns.Close(); err != nil {
		log.Error("error closing connections", map[string]interface{}{"error": err.Error()})
	}
	log.Info("worker manager stopped gracefully", nil)
}

// connect opens Postgres, Redis and Elasticsearch, retrying transient
// failures while the stores come up.
func connect(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.Connections, error) {
	var (
		db  *sql.DB
		es  *elasticsearch.Client
		rdb *redis.Client
	)

	err := camunda.Retry(ctx, connectRetry, "postgres connect", func(ctx context.Context) error {
		var err error
		db, err = database.NewPostgres(ctx, cfg.Database.Postgres)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info("connected to postgres", map[string]interface{}{"host": cfg.Database.Postgres.Host})

	rdb = database.NewRedis(cfg.Database.Redis)

	es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}

	conns := &database.Connections{Postgres: db, Redis: rdb, Elasticsearch: es}
	err = camunda.Retry(ctx, connectRetry, "store ping", func(ctx context.Context) error {
		return conns.Ping(ctx)
	})
	if err != nil {
		// Degraded stores are reported on /ready; jobs fail individually.
		log.Warn("backing stores not ready at startup", map[string]interface{}{"error": err.Error()})
	}
	return conns, nil
}

func newMux(conns *database.Connections, zeebe *camunda.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", "")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := conns.Ping(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
		if err := zeebe.HealthCheck(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready", "")
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status, detail string) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if detail != "" {
		body["error"] = detail
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err.Error()})
	os.Exit(1)
}
