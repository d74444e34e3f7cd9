// Package fcm adapts the Firebase Cloud Messaging client to the fanout.Sender
// contract, including the mapping of provider error codes onto error kinds.
package fcm

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
// Note: *messaging.Client satisfies it automatically.
type MessagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Sender struct {
	client MessagingClient
	logger *slog.Logger
}

func NewSender(client MessagingClient, logger *slog.Logger) *Sender {
	return &Sender{
		client: client,
		logger: logger.With("component", "FCMSender"),
	}
}

// Send delivers the payload to a single token. Any provider failure is folded
// into the outcome; the caller decides what a failed run means.
func (s *Sender) Send(ctx context.Context, token string, p fanout.Payload) fanout.SendOutcome {
	id, err := s.client.Send(ctx, s.singleMessage(token, p))
	if err != nil {
		kind := Classify(err)
		s.logger.Error("Single send failed", "kind", string(kind), "err", err)
		return fanout.SendOutcome{Token: token, Kind: kind}
	}
	s.logger.Debug("Single send delivered", "message_id", id)
	return fanout.SendOutcome{Token: token, Success: true}
}

// SendBatch delivers the payload to up to 500 tokens in one multicast call.
// The returned outcomes are position-aligned with tokens (FCM contract). A
// non-nil error means the call itself faulted and nothing was delivered.
func (s *Sender) SendBatch(ctx context.Context, tokens []string, p fanout.Payload) ([]fanout.SendOutcome, error) {
	br, err := s.client.SendEachForMulticast(ctx, s.multicastMessage(tokens, p))
	if err != nil {
		return nil, fmt.Errorf("fcm multicast failed: %w", err)
	}

	outcomes := make([]fanout.SendOutcome, len(br.Responses))
	for idx, resp := range br.Responses {
		if resp.Success {
			outcomes[idx] = fanout.SendOutcome{Token: tokens[idx], Success: true}
			continue
		}
		outcomes[idx] = fanout.SendOutcome{Token: tokens[idx], Kind: Classify(resp.Error)}
	}

	s.logger.Debug("Multicast dispatched", "success", br.SuccessCount, "failure", br.FailureCount)
	return outcomes, nil
}

// Classify maps a Firebase Messaging error onto the dispatcher's error
// taxonomy. Only invalid_token and unregistered trigger token cleanup;
// everything retryable stays transient so the token survives for a later run.
func Classify(err error) fanout.ErrorKind {
	switch {
	case messaging.IsInvalidArgument(err):
		return fanout.KindInvalidToken
	case messaging.IsRegistrationTokenNotRegistered(err):
		return fanout.KindUnregistered
	case messaging.IsUnavailable(err), messaging.IsInternal(err), messaging.IsQuotaExceeded(err):
		return fanout.KindTransient
	default:
		return fanout.KindUnknown
	}
}

func (s *Sender) singleMessage(token string, p fanout.Payload) *messaging.Message {
	return &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: p.Title, Body: p.Body},
		Data:         p.Data,
		Android:      androidConfig(p),
		APNS:         apnsConfig(p),
	}
}

func (s *Sender) multicastMessage(tokens []string, p fanout.Payload) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: p.Title, Body: p.Body},
		Data:         p.Data,
		Android:      androidConfig(p),
		APNS:         apnsConfig(p),
	}
}

func androidConfig(p fanout.Payload) *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: p.Priority,
		Notification: &messaging.AndroidNotification{
			Sound:     p.Sound,
			ChannelID: p.ChannelID,
		},
	}
}

func apnsConfig(p fanout.Payload) *messaging.APNSConfig {
	badge := p.Badge
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound: p.Sound,
				Badge: &badge,
			},
		},
	}
}
