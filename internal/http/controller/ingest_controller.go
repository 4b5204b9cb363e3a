package controller

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/jobs"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the file size limit for form boundaries and headers.
const multipartOverhead = 1 << 20

// IngestController handles CSV uploads and job status polling.
type IngestController struct {
	runner         JobRunner
	uploadDir      string
	maxUploadBytes int64
}

// NewIngestController creates a new IngestController. Uploads are written to uploadDir.
func NewIngestController(runner JobRunner, uploadDir string, maxUploadBytes int64) *IngestController {
	return &IngestController{
		runner:         runner,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
	}
}

// ProgressResponse is the progress part of a status response.
type ProgressResponse struct {
	Processed int64 `json:"processed"`
	Total     int64 `json:"total"`
}

// TaskStatusResponse represents the response body for a job status poll.
type TaskStatusResponse struct {
	JobID    string           `json:"job_id"`
	Kind     model.JobKind    `json:"kind,omitempty"`
	State    model.JobState   `json:"state"`
	Progress ProgressResponse `json:"progress"`
	Error    string           `json:"error,omitempty"`
	Result   json.RawMessage  `json:"result,omitempty"`
}

// UploadCSV handles the HTTP POST request that starts an ingestion job from a CSV upload.
func (ic *IngestController) UploadCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ic.maxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv files are accepted"})
		return
	}
	if fileHeader.Size > ic.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
		return
	}

	tmp, err := os.CreateTemp(ic.uploadDir, "upload-*.csv")
	if err != nil {
		slog.Error("failed to create upload file", slog.String("dir", ic.uploadDir), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}
	path := tmp.Name()
	tmp.Close()

	if err := c.SaveUploadedFile(fileHeader, path); err != nil {
		os.Remove(path)
		slog.Error("failed to save upload", slog.String("path", path), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	jobID, err := ic.runner.SubmitIngestionJob(c.Request.Context(), path)
	if err != nil {
		os.Remove(path)
		if errors.Is(err, jobs.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many jobs queued, try again later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start ingestion"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// TaskStatus handles the HTTP GET request for a job snapshot. Unknown ids answer 404 with state UNKNOWN.
func (ic *IngestController) TaskStatus(c *gin.Context) {
	status, err := ic.runner.GetJobStatus(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job status"})
		return
	}

	code := http.StatusOK
	if status.State == model.JobStateUnknown {
		code = http.StatusNotFound
	}
	c.JSON(code, toTaskStatusResponse(status))
}

// CancelTask handles the HTTP POST request that asks a pending or running job to stop.
func (ic *IngestController) CancelTask(c *gin.Context) {
	jobID := c.Param("job_id")
	if err := ic.runner.CancelJob(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, repository.ErrJobNotCancelable) {
			c.JSON(http.StatusConflict, gin.H{"error": "job is not pending or running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "message": "cancellation requested"})
}

func toTaskStatusResponse(status model.JobStatus) TaskStatusResponse {
	return TaskStatusResponse{
		JobID: status.JobID,
		Kind:  status.Kind,
		State: status.State,
		Progress: ProgressResponse{
			Processed: status.Processed,
			Total:     status.Total,
		},
		Error:  status.Error,
		Result: status.Result,
	}
}
