package model

// Task is the queue message that asks a worker to execute a job.
type Task struct {
	JobID     string  `json:"job_id"`
	Kind      JobKind `json:"kind"`
	FilePath  string  `json:"file_path,omitempty"`
	WebhookID string  `json:"webhook_id,omitempty"`
}
