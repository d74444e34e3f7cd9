// Package pipeline contains the message processing components wiring the
// trigger transport to the delivery engine.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

// validate is initialised once at package load time; custom registrations
// would go in an init() before the first Struct call.
var validate = validator.New(validator.WithRequiredStructEnabled())

// NotificationTransformer unmarshals and validates a raw trigger message (the
// notification-created event) into a fanout.Notification.
//
// Malformed JSON and events failing validation (missing id or title, an
// unknown target, specific without a user id) are returned with skip=true so
// the streaming service can route them to the DLQ instead of retrying
// forever.
func NotificationTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*fanout.Notification, bool, error) {
	var n fanout.Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal notification event from message %s: %w", msg.ID, err)
	}
	if err := validate.Struct(&n); err != nil {
		return nil, true, fmt.Errorf("invalid notification event in message %s: %w", msg.ID, err)
	}
	return &n, false, nil
}
