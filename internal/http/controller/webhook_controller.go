package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookController handles HTTP requests for webhook management and test invocations.
type WebhookController struct {
	webhooks repository.WebhookRepository
	runner   JobRunner
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(webhooks repository.WebhookRepository, runner JobRunner) *WebhookController {
	return &WebhookController{
		webhooks: webhooks,
		runner:   runner,
	}
}

// CreateWebhookRequest represents the request body for registering a webhook.
type CreateWebhookRequest struct {
	URL    string `json:"url" binding:"required,url"`
	Event  string `json:"event" binding:"required"`
	Active *bool  `json:"active"`
}

// ListWebhooksRequest represents the query parameters for listing webhooks.
type ListWebhooksRequest struct {
	Limit  int32  `form:"limit"`
	Token  string `form:"token"`
	Active string `form:"active"`
}

// WebhookResponse represents a webhook in API responses.
type WebhookResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Event     string    `json:"event"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListWebhooksResponse represents a page of webhooks.
type ListWebhooksResponse struct {
	Webhooks      []WebhookResponse `json:"webhooks"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

// Create handles the HTTP POST request for registering a webhook.
func (wc *WebhookController) Create(c *gin.Context) {
	var req CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	created, err := wc.webhooks.Create(c.Request.Context(), &model.Webhook{
		URL:    req.URL,
		Event:  req.Event,
		Active: active,
	})
	if err != nil {
		var uniqueErr *repository.UniqueConstraintError
		if errors.As(err, &uniqueErr) {
			respond(c, http.StatusConflict, "Webhook already exists for this url and event", nil)
			return
		}
		slog.Error("failed to create webhook", slog.Any("err", err))
		respond(c, http.StatusInternalServerError, "Failed to create webhook", nil)
		return
	}

	respond(c, http.StatusCreated, "Webhook created", toWebhookResponse(created))
}

// List handles the HTTP GET request for listing webhooks, newest first.
func (wc *WebhookController) List(c *gin.Context) {
	var req ListWebhooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid query parameters", nil)
		return
	}

	query := repository.NewQuery()
	if req.Active != "" {
		if _, err := strconv.ParseBool(req.Active); err != nil {
			respond(c, http.StatusBadRequest, "active must be true or false", nil)
			return
		}
		query.With(repository.ActiveField, req.Active)
	}
	if err := query.ApplyPagination(req.Limit, req.Token); err != nil {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	webhooks, err := wc.webhooks.List(c.Request.Context(), *query)
	if err != nil {
		respond(c, http.StatusInternalServerError, "Failed to list webhooks", nil)
		return
	}

	resp := ListWebhooksResponse{Webhooks: make([]WebhookResponse, 0, len(webhooks))}
	for _, w := range webhooks {
		resp.Webhooks = append(resp.Webhooks, toWebhookResponse(w))
	}
	if len(webhooks) > 0 && len(webhooks) == query.Limit {
		last := webhooks[len(webhooks)-1]
		resp.NextPageToken = repository.Paginator{LastID: last.ID, LastCreatedAt: last.CreatedAt}.Encode()
	}

	respond(c, http.StatusOK, "Webhooks fetched", resp)
}

// Test handles the HTTP POST request that queues a test invocation of a webhook.
func (wc *WebhookController) Test(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond(c, http.StatusBadRequest, "invalid webhook id", nil)
		return
	}

	hook, err := wc.webhooks.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respond(c, http.StatusNotFound, "Webhook not found", nil)
			return
		}
		respond(c, http.StatusInternalServerError, "Failed to load webhook", nil)
		return
	}
	if !hook.Active {
		respond(c, http.StatusBadRequest, webhook.MessageDisabled, nil)
		return
	}

	taskID, err := wc.runner.SubmitWebhookTest(c.Request.Context(), hook.ID)
	if err != nil {
		respond(c, http.StatusServiceUnavailable, "Failed to queue webhook test", nil)
		return
	}

	respond(c, http.StatusOK, "Webhook test queued", gin.H{"task_id": taskID})
}

func toWebhookResponse(w *model.Webhook) WebhookResponse {
	return WebhookResponse{
		ID:        w.ID.String(),
		URL:       w.URL,
		Event:     w.Event,
		Active:    w.Active,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
