package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Generate(ctx context.Context, expire bool) (string, error) {
	args := m.Called(ctx, expire)
	return args.String(0), args.Error(1)
}

func (m *MockTokenRepository) Check(ctx context.Context, token string) bool {
	args := m.Called(ctx, token)
	return args.Bool(0)
}

func (m *MockTokenRepository) Delete(ctx context.Context, token string) bool {
	args := m.Called(ctx, token)
	return args.Bool(0)
}

func (m *MockTokenRepository) Consume(ctx context.Context, token string) bool {
	args := m.Called(ctx, token)
	return args.Bool(0)
}
