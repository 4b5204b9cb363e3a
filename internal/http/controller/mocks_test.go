package controller

import (
	"context"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockJobRunner struct {
	mock.Mock
}

func (m *MockJobRunner) SubmitIngestionJob(ctx context.Context, filePath string) (string, error) {
	args := m.Called(ctx, filePath)
	return args.String(0), args.Error(1)
}

func (m *MockJobRunner) SubmitWebhookTest(ctx context.Context, webhookID uuid.UUID) (string, error) {
	args := m.Called(ctx, webhookID)
	return args.String(0), args.Error(1)
}

func (m *MockJobRunner) GetJobStatus(ctx context.Context, jobID string) (model.JobStatus, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(model.JobStatus), args.Error(1)
}

func (m *MockJobRunner) CancelJob(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

type MockProductDeleter struct {
	mock.Mock
}

func (m *MockProductDeleter) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductDeleter) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) Create(ctx context.Context, webhook *model.Webhook) (*model.Webhook, error) {
	args := m.Called(ctx, webhook)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Webhook), args.Error(1)
}

func (m *MockWebhookRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Webhook, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Webhook), args.Error(1)
}

func (m *MockWebhookRepository) List(ctx context.Context, query repository.Query) ([]*model.Webhook, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Webhook), args.Error(1)
}
