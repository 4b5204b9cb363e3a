package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/config"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/ingest"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/jobs"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/logger"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/metrics"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository/sql"
	sqspkg "github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/sqs"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/webhook"
	"golang.org/x/time/rate"
)

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)
	logger.InitJSONLogger(conf.DebugMode)

	if conf.Jobs.QueueBackend != config.BackendSQS {
		handleErr("checking config", fmt.Errorf("%w: worker needs %s=%s", config.ErrInvalidBackend, config.QueueBackendEnv, config.BackendSQS))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)
	defer db.Close()

	store := sql.NewJobRepository(db)
	invoker := webhook.NewInvoker(webhook.DefaultTimeout, rate.NewLimiter(rate.Limit(conf.Webhook.TestsPerSecond), 1))
	pipeline := ingest.NewPipeline(sql.NewProductRepository(db), conf.Ingest.BatchSize)
	executor := jobs.NewExecutor(store, pipeline, sql.NewWebhookRepository(db), invoker)

	sqsClient, err := sqspkg.NewClientFromConfig(ctx, conf.AWS)
	handleErr("creating SQS client", err)
	consumer := sqspkg.NewConsumer(sqsClient, conf.AWS.SQSQueueURL, executor)

	// Start consuming messages
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("consumer stopped", slog.Any("err", err))
		}
	}()

	metricsServer := metrics.StartMetricsServer(conf)
	slog.Info("importer worker started, listening for tasks", slog.String("queue_url", conf.AWS.SQSQueueURL))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("shutting down gracefully")
	cancel()
	<-done
	metrics.Shutdown(metricsServer, 10*time.Second)
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("fatal error", slog.String("while", msg), slog.Any("err", err))
		os.Exit(1)
	}
}
