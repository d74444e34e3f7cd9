package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

// Deliverer runs one notification to completion. Satisfied by
// *delivery.Engine; kept as an interface so the processor can be unit tested
// without real dispatch.
type Deliverer interface {
	Deliver(ctx context.Context, n fanout.Notification) fanout.StatusRecord
}

// NewProcessor creates the logic that handles one trigger message: run the
// delivery engine, then persist the status record.
//
// The engine never fails a run upward; the only error the processor returns
// is a failed status write, because the write-back is the run's one durable
// output and a Nack gives it another chance.
func NewProcessor(
	engine Deliverer,
	statusWriter fanout.StatusWriter,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[fanout.Notification] {

	return func(ctx context.Context, original messagepipeline.Message, n *fanout.Notification) error {
		procLogger := logger.With(
			"notification_id", n.ID,
			"pubsub_msg_id", original.ID,
		)

		record := engine.Deliver(ctx, *n)

		if err := statusWriter.WriteStatus(ctx, n.ID, record); err != nil {
			procLogger.Error("Failed to persist status record", "err", err)
			return err // Retryable
		}

		procLogger.Info("Run recorded",
			"status", string(record.Status),
			"success", record.SuccessCount,
			"failure", record.FailureCount,
			"targets", record.TargetCount,
		)
		return nil
	}
}
