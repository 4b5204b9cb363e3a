package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	DebugModeEnv         = "DEBUG_MODE"
	DBHostEnv            = "DB_HOST"
	DBPortEnv            = "DB_PORT"
	DBUserEnv            = "DB_USER"
	DBPassEnv            = "DB_PASS"
	DBNameEnv            = "DB_NAME"
	HTTPServerPortEnv    = "HTTP_SERVER_PORT"
	MetricsServerPortEnv = "METRICS_SERVER_PORT"
	AWSRegionEnv         = "AWS_REGION"
	AWSEndpointEnv       = "AWS_ENDPOINT"
	SQSQueueURLEnv       = "SQS_QUEUE_URL"

	// EnvFilePath points at an optional .env file, used locally and in tests.
	EnvFilePath        = "ENV_PATH"
	DefaultEnvFilePath = ".env"

	// QueueBackendEnv selects where tasks are queued: "memory" or "sqs".
	QueueBackendEnv = "QUEUE_BACKEND"

	// JobStoreEnv selects where job state lives: "memory" or "postgres".
	JobStoreEnv = "JOB_STORE"

	// UploadDirEnv is the directory uploaded CSV files are written to.
	UploadDirEnv = "UPLOAD_DIR"

	// MaxUploadBytesEnv caps the size of an uploaded CSV file.
	MaxUploadBytesEnv = "MAX_UPLOAD_BYTES"

	// IngestBatchSizeEnv is the number of CSV rows committed per batch.
	IngestBatchSizeEnv = "INGEST_BATCH_SIZE"

	// WorkerCountEnv is the number of in-process workers draining the memory queue.
	WorkerCountEnv = "WORKER_COUNT"

	// QueueSizeEnv is the capacity of the in-process task queue.
	QueueSizeEnv = "QUEUE_SIZE"

	// JobRetentionEnv is how long finished jobs stay queryable.
	JobRetentionEnv = "JOB_RETENTION"

	// JanitorIntervalEnv is how often expired jobs are purged.
	JanitorIntervalEnv = "JANITOR_INTERVAL"

	// JobLeaseEnv is how long a pending or running job may go without an update before it is failed.
	JobLeaseEnv = "JOB_LEASE"

	// ShutdownDrainEnv is how long shutdown waits for queued tasks before failing the rest.
	ShutdownDrainEnv = "SHUTDOWN_DRAIN"

	// WebhookTestsPerSecondEnv paces outbound webhook test calls.
	WebhookTestsPerSecondEnv = "WEBHOOK_TESTS_PER_SECOND"
)

const (
	// BackendMemory keeps tasks or jobs inside the process.
	BackendMemory = "memory"
	// BackendSQS dispatches tasks through AWS SQS.
	BackendSQS = "sqs"
	// BackendPostgres keeps job state in the ingestion_jobs table.
	BackendPostgres = "postgres"

	DefaultIngestBatchSize       = 20000
	DefaultWorkerCount           = 4
	DefaultQueueSize             = 100
	DefaultMaxUploadBytes        = 500 * 1024 * 1024
	DefaultJobRetention          = 24 * time.Hour
	DefaultJanitorInterval       = 10 * time.Minute
	DefaultJobLease              = 30 * time.Minute
	DefaultShutdownDrain         = 20 * time.Second
	DefaultWebhookTestsPerSecond = 5
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")

	// ErrInvalidBackend is returned when a backend selector has an unsupported value.
	ErrInvalidBackend = errors.New("invalid backend")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	AWS           AWSConfig
	Ingest        Ingest
	Jobs          Jobs
	Webhook       Webhook
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region      string
	Endpoint    string
	SQSQueueURL string
}

// DB represents database configuration settings.
type DB struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// Ingest holds the CSV upload and batching settings.
type Ingest struct {
	UploadDir      string
	MaxUploadBytes int64
	BatchSize      int
}

// Jobs holds the task queue and job store settings.
type Jobs struct {
	QueueBackend    string
	Store           string
	Workers         int
	QueueSize       int
	Retention       time.Duration
	JanitorInterval time.Duration
	Lease           time.Duration
	ShutdownDrain   time.Duration
}

// Webhook holds the webhook test invoker settings.
type Webhook struct {
	TestsPerSecond float64
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.Any("allowed", allowed))
	return fmt.Errorf("%w for key %s: %q", ErrInvalidBackend, key, value)
}

func (c *Config) validate() error {
	if err := allNonEmpty(map[string]string{
		DBHostEnv: c.Database.Host,
		DBUserEnv: c.Database.User,
		DBNameEnv: c.Database.Name,
	}); err != nil {
		return fmt.Errorf("database configuration incomplete: %w", err)
	}

	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	if err := allNumbers(map[string]string{
		DBPortEnv:            c.Database.Port,
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if err := oneOf(QueueBackendEnv, c.Jobs.QueueBackend, BackendMemory, BackendSQS); err != nil {
		return err
	}
	if err := oneOf(JobStoreEnv, c.Jobs.Store, BackendMemory, BackendPostgres); err != nil {
		return err
	}

	// SQS workers run in another process, so they can only see jobs kept in postgres.
	if c.Jobs.QueueBackend == BackendSQS {
		if err := allNonEmpty(map[string]string{
			SQSQueueURLEnv: c.AWS.SQSQueueURL,
		}); err != nil {
			return fmt.Errorf("AWS configuration incomplete: %w", err)
		}
		if c.Jobs.Store != BackendPostgres {
			return fmt.Errorf("%w: %s=%s requires %s=%s", ErrInvalidBackend, QueueBackendEnv, BackendSQS, JobStoreEnv, BackendPostgres)
		}
	}

	if c.Ingest.BatchSize <= 0 || c.Jobs.Workers <= 0 || c.Jobs.QueueSize <= 0 {
		return fmt.Errorf("%s, %s and %s must be positive", IngestBatchSizeEnv, WorkerCountEnv, QueueSizeEnv)
	}
	if c.Jobs.JanitorInterval <= 0 || c.Jobs.Lease <= 0 {
		return fmt.Errorf("%s and %s must be positive durations", JanitorIntervalEnv, JobLeaseEnv)
	}
	// A zero rate would let one test through and block every later one.
	if c.Webhook.TestsPerSecond <= 0 {
		return fmt.Errorf("%s must be positive, got %v", WebhookTestsPerSecondEnv, c.Webhook.TestsPerSecond)
	}

	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if val, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if val, err := strconv.ParseInt(os.Getenv(name), 10, 64); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsFloat(name string, defaultValue float64) float64 {
	if val, err := strconv.ParseFloat(os.Getenv(name), 64); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// The process environment may already carry everything.
		slog.Info("no .env file applied", slog.String("path", envPath), slog.Any("err", err))
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		Database: DB{
			Host:     os.Getenv(DBHostEnv),
			User:     os.Getenv(DBUserEnv),
			Password: os.Getenv(DBPassEnv),
			Name:     os.Getenv(DBNameEnv),
			Port:     os.Getenv(DBPortEnv),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: AWSConfig{
			Region:      os.Getenv(AWSRegionEnv),
			Endpoint:    os.Getenv(AWSEndpointEnv),
			SQSQueueURL: os.Getenv(SQSQueueURLEnv),
		},
		Ingest: Ingest{
			UploadDir:      getEnv(UploadDirEnv, os.TempDir()),
			MaxUploadBytes: getEnvAsInt64(MaxUploadBytesEnv, DefaultMaxUploadBytes),
			BatchSize:      getEnvAsInt(IngestBatchSizeEnv, DefaultIngestBatchSize),
		},
		Jobs: Jobs{
			QueueBackend:    getEnv(QueueBackendEnv, BackendMemory),
			Store:           getEnv(JobStoreEnv, BackendPostgres),
			Workers:         getEnvAsInt(WorkerCountEnv, DefaultWorkerCount),
			QueueSize:       getEnvAsInt(QueueSizeEnv, DefaultQueueSize),
			Retention:       getEnvAsDuration(JobRetentionEnv, DefaultJobRetention),
			JanitorInterval: getEnvAsDuration(JanitorIntervalEnv, DefaultJanitorInterval),
			Lease:           getEnvAsDuration(JobLeaseEnv, DefaultJobLease),
			ShutdownDrain:   getEnvAsDuration(ShutdownDrainEnv, DefaultShutdownDrain),
		},
		Webhook: Webhook{
			TestsPerSecond: getEnvAsFloat(WebhookTestsPerSecondEnv, DefaultWebhookTestsPerSecond),
		},
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}
