package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/events"
)

// SenderMock is a mock implementation of the publish.Sender interface.
type SenderMock struct {
	mock.Mock
}

func (m *SenderMock) Send(ctx context.Context, report *events.CompileReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
