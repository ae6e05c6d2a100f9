package mocks

import (
	"context"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockMailTransport struct {
	mock.Mock
}

func (m *MockMailTransport) Send(ctx context.Context, msg models.MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
