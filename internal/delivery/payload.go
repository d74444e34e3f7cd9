package delivery

import (
	"strconv"
	"time"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

// BuildPayload constructs the message payload for one run. It is built once
// and shared by every batch; there is no per-recipient customization.
//
// The data block tags the message as an alert and carries the notification id
// so the receiving app can route the tap. The hints ask for immediate,
// audible delivery on both platforms.
func BuildPayload(title, message, notificationID string) fanout.Payload {
	return fanout.Payload{
		Title: title,
		Body:  message,
		Data: map[string]string{
			"type":           "alert",
			"notificationId": notificationID,
			"timestamp":      strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
		Priority:  "high",
		Sound:     "default",
		ChannelID: "default_channel",
		Badge:     1,
	}
}
