package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-dispatcher/internal/pipeline"
	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Typed Mocks ---

type mockDeliverer struct {
	mock.Mock
}

func (m *mockDeliverer) Deliver(ctx context.Context, n fanout.Notification) fanout.StatusRecord {
	args := m.Called(ctx, n)
	return args.Get(0).(fanout.StatusRecord)
}

type mockStatusWriter struct {
	mock.Mock
}

func (m *mockStatusWriter) WriteStatus(ctx context.Context, notificationID string, rec fanout.StatusRecord) error {
	return m.Called(ctx, notificationID, rec).Error(0)
}

func TestProcessor(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	n := &fanout.Notification{
		ID:      "notif-1",
		Title:   "Hello",
		Message: "World",
		Target:  fanout.TargetAll,
	}
	record := fanout.StatusRecord{
		Status:       fanout.StatusDelivered,
		SuccessCount: 3,
		TargetCount:  3,
		UserName:     "All Users",
	}

	t.Run("Writes the engine's record against the notification id", func(t *testing.T) {
		engine := new(mockDeliverer)
		writer := new(mockStatusWriter)

		engine.On("Deliver", mock.Anything, *n).Return(record)
		writer.On("WriteStatus", mock.Anything, "notif-1", record).Return(nil)

		processor := pipeline.NewProcessor(engine, writer, logger)
		err := processor(ctx, messagepipeline.Message{}, n)

		require.NoError(t, err)
		engine.AssertExpectations(t)
		writer.AssertExpectations(t)
	})

	t.Run("Failed status write is returned as retryable", func(t *testing.T) {
		engine := new(mockDeliverer)
		writer := new(mockStatusWriter)

		engine.On("Deliver", mock.Anything, *n).Return(record)
		writer.On("WriteStatus", mock.Anything, "notif-1", record).Return(errors.New("firestore down"))

		processor := pipeline.NewProcessor(engine, writer, logger)
		err := processor(ctx, messagepipeline.Message{}, n)

		require.Error(t, err)
	})
}
