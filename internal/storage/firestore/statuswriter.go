package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

const notificationsCollection = "notifications"

// StatusWriter persists the terminal status record onto the originating
// notification document. The timestamp is server-assigned.
type StatusWriter struct {
	client *firestore.Client
}

func NewStatusWriter(client *firestore.Client) *StatusWriter {
	return &StatusWriter{client: client}
}

func (w *StatusWriter) WriteStatus(ctx context.Context, notificationID string, rec fanout.StatusRecord) error {
	// error is written as null when the run was clean so a previous failed
	// attempt's message never lingers on the document.
	var errValue interface{}
	if rec.Error != "" {
		errValue = rec.Error
	}

	_, err := w.client.Collection(notificationsCollection).Doc(notificationID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(rec.Status)},
		{Path: "successCount", Value: rec.SuccessCount},
		{Path: "failureCount", Value: rec.FailureCount},
		{Path: "targetCount", Value: rec.TargetCount},
		{Path: "error", Value: errValue},
		{Path: "userName", Value: rec.UserName},
		{Path: "timestamp", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("updating notification %s: %w", notificationID, err)
	}
	return nil
}
