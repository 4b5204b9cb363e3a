package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/config"
	httpAPI "github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/http"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/http/controller"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/ingest"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/jobs"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/logger"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/metrics"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository/sql"
	sqspkg "github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/sqs"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/webhook"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)
	logger.InitJSONLogger(conf.DebugMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)
	defer db.Close()

	// Create repositories
	productRepository := sql.NewProductRepository(db)
	webhookRepository := sql.NewWebhookRepository(db)

	var store repository.JobStore = jobs.NewMemoryStore()
	if conf.Jobs.Store == config.BackendPostgres {
		store = sql.NewJobRepository(db)
	}

	var queue jobs.Queue
	var localQueue *jobs.ChannelQueue
	switch conf.Jobs.QueueBackend {
	case config.BackendSQS:
		sqsClient, err := sqspkg.NewClientFromConfig(ctx, conf.AWS)
		handleErr("creating SQS client", err)
		queue = sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)
	default:
		invoker := webhook.NewInvoker(webhook.DefaultTimeout, rate.NewLimiter(rate.Limit(conf.Webhook.TestsPerSecond), 1))
		pipeline := ingest.NewPipeline(productRepository, conf.Ingest.BatchSize)
		executor := jobs.NewExecutor(store, pipeline, webhookRepository, invoker)
		localQueue = jobs.NewChannelQueue(conf.Jobs.QueueSize, conf.Jobs.Workers, executor)
		localQueue.Start(ctx)
		queue = localQueue
	}

	runner := jobs.NewRunner(store, queue)

	janitor := jobs.NewJanitor(store, conf.Jobs.Retention, conf.Jobs.Lease, conf.Jobs.JanitorInterval)
	go janitor.Start(ctx)

	// Start HTTP server
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := httpAPI.InitRouter(gin.New(), httpAPI.Controllers{
		Base:     controller.New(),
		Ingest:   controller.NewIngestController(runner, conf.Ingest.UploadDir, conf.Ingest.MaxUploadBytes),
		Products: controller.NewProductController(productRepository),
		Webhooks: controller.NewWebhookController(webhookRepository, runner),
	})
	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	metricsServer := metrics.StartMetricsServer(conf)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down HTTP server", slog.Any("err", err))
	}

	if localQueue != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), conf.Jobs.ShutdownDrain)
		if err := localQueue.Stop(drainCtx); err != nil {
			slog.Warn("task queue not drained in time, failing remaining jobs", slog.Any("err", err))
		}
		drainCancel()
	}

	// Running jobs observe the canceled context and finish as FAILED; queued ones are abandoned.
	cancel()
	if localQueue != nil {
		_ = localQueue.Stop(context.Background())
	}
	janitor.Stop()
	metrics.Shutdown(metricsServer, shutdownTimeout)
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("fatal error", slog.String("while", msg), slog.Any("err", err))
		os.Exit(1)
	}
}
