package mocks

import (
	"context"

	"docsearch/internal/model"
	"docsearch/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, f service.UploadFile) model.UploadResult {
	args := m.Called(ctx, f)
	return args.Get(0).(model.UploadResult)
}

func (m *MockIngestService) IngestBatch(ctx context.Context, files []service.UploadFile) []model.UploadResult {
	args := m.Called(ctx, files)
	return args.Get(0).([]model.UploadResult)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchResult), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentService) View(ctx context.Context, filename string) (*service.FileContent, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FileContent), args.Error(1)
}

func (m *MockDocumentService) Download(ctx context.Context, filename string) (*service.FileContent, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FileContent), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, filename string) (int, error) {
	args := m.Called(ctx, filename)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentService) CheckConsistency(ctx context.Context) (*model.ConsistencyReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsistencyReport), args.Error(1)
}
