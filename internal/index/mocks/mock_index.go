package mocks

import (
	"context"

	"docsearch/internal/index"
	"docsearch/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) IndexDocument(ctx context.Context, doc *model.Document) (bool, error) {
	args := m.Called(ctx, doc)
	return args.Bool(0), args.Error(1)
}

func (m *MockIndex) FindByFilename(ctx context.Context, filename string) ([]model.Document, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockIndex) Search(ctx context.Context, query string, limit int) ([]index.Hit, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]index.Hit), args.Error(1)
}

func (m *MockIndex) DeleteByFilename(ctx context.Context, filename string) (int, error) {
	args := m.Called(ctx, filename)
	return args.Int(0), args.Error(1)
}

func (m *MockIndex) ListFilenames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIndex) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIndex) Close() error {
	args := m.Called()
	return args.Error(0)
}
