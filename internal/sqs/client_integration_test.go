package sqs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// taskRecorder is a TaskHandler that forwards every task to a channel.
type taskRecorder chan model.Task

func (r taskRecorder) Handle(_ context.Context, task model.Task) error {
	r <- task
	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// TestPublisherConsumer_Integration_WithLocalStack sends a task through a real queue.
// It needs LocalStack on AWS_ENDPOINT (default localhost:4566) with the product-import-tasks
// queue created, and is skipped otherwise.
func TestPublisherConsumer_Integration_WithLocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	endpoint := envOr("AWS_ENDPOINT", "http://localhost:4566")
	queueURL := envOr("SQS_QUEUE_URL", "http://localhost:4566/000000000000/product-import-tasks")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := NewClient(ctx, "us-east-1", endpoint)
	require.NoError(t, err)
	if _, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String("product-import-tasks")}); err != nil {
		t.Skipf("LocalStack queue not available: %v", err)
	}

	task := model.Task{JobID: uuid.NewString(), Kind: model.JobKindIngestion, FilePath: "/uploads/integration.csv"}
	require.NoError(t, NewPublisher(client, queueURL).Enqueue(ctx, task))

	received := make(taskRecorder, 10)
	consumerCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = NewConsumer(client, queueURL, received).Start(consumerCtx)
	}()

	// other tests may have left messages behind, so wait for ours
	for {
		select {
		case got := <-received:
			if got.JobID == task.JobID {
				assert.Equal(t, task, got)
				return
			}
		case <-ctx.Done():
			t.Fatal("published task was not consumed")
		}
	}
}
