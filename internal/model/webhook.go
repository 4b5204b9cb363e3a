package model

import (
	"time"

	"github.com/google/uuid"
)

// Webhook is a registered callback target.
type Webhook struct {
	ID        uuid.UUID
	URL       string
	Event     string
	Active    bool
	UpdatedAt time.Time
	CreatedAt time.Time
}

// InitMeta initializes the webhook metadata including ID and timestamps.
func (w *Webhook) InitMeta() {
	w.ID = uuid.New()
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
}
