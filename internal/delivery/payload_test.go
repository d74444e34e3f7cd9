package delivery_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-dispatcher/internal/delivery"
)

func TestBuildPayload(t *testing.T) {
	before := time.Now().UnixMilli()
	p := delivery.BuildPayload("Maintenance", "Back at 9pm", "notif-42")
	after := time.Now().UnixMilli()

	assert.Equal(t, "Maintenance", p.Title)
	assert.Equal(t, "Back at 9pm", p.Body)

	assert.Equal(t, "alert", p.Data["type"])
	assert.Equal(t, "notif-42", p.Data["notificationId"])

	ts, err := strconv.ParseInt(p.Data["timestamp"], 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, after)

	assert.Equal(t, "high", p.Priority)
	assert.Equal(t, "default", p.Sound)
	assert.Equal(t, "default_channel", p.ChannelID)
	assert.Equal(t, 1, p.Badge)
}
