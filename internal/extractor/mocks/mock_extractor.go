package mocks

import (
	"context"

	"docsearch/internal/extractor"
	"github.com/stretchr/testify/mock"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, path, contentType string) (extractor.Result, error) {
	args := m.Called(ctx, path, contentType)
	return args.Get(0).(extractor.Result), args.Error(1)
}
