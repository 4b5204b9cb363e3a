package controller

import (
	"context"
	"net/http"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	messageTypeSuccess = "success"
	messageTypeError   = "error"
)

// JobRunner is the job system as seen by the HTTP adapter.
type JobRunner interface {
	SubmitIngestionJob(ctx context.Context, filePath string) (string, error)
	SubmitWebhookTest(ctx context.Context, webhookID uuid.UUID) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (model.JobStatus, error)
	CancelJob(ctx context.Context, jobID string) error
}

// Controller handles general HTTP requests.
type Controller struct{}

// New creates a new Controller.
func New() *Controller {
	return &Controller{}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// envelope is the response shape shared by the webhook endpoints.
type envelope struct {
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	StatusCode  int    `json:"status_code"`
	Data        any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	messageType := messageTypeSuccess
	if status >= http.StatusBadRequest {
		messageType = messageTypeError
	}
	c.JSON(status, envelope{
		Message:     message,
		MessageType: messageType,
		StatusCode:  status,
		Data:        data,
	})
}
