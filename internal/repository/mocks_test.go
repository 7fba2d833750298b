package repository

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of storage.Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBackend) Save(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}
