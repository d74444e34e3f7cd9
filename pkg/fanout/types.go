// Package fanout contains the public domain model and collaborator contracts
// for the push-notification fan-out dispatcher.
package fanout

import "fmt"

// Target selects the audience of a notification.
type Target string

const (
	TargetAll      Target = "all"
	TargetSpecific Target = "specific"
)

// Notification is the record the dispatcher processes. It is owned by the
// triggering event and read-only to the dispatch run. The json tags match the
// notification document the trigger publishes; the validate tags are enforced
// by the pipeline transformer before a run starts.
type Notification struct {
	ID           string `json:"notificationId" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Message      string `json:"message" validate:"required"`
	Target       Target `json:"target" validate:"required,oneof=all specific"`
	SpecificUser string `json:"specificUser,omitempty" validate:"required_if=Target specific"`
}

// User is one user record as exposed by the user store.
type User struct {
	ID       string
	Name     string
	FCMToken string
}

// RecipientToken pairs a device push token with the id of the user record it
// was read from. The owner id is what lets the cleanup path clear the token
// after the provider reports it permanently invalid.
type RecipientToken struct {
	Token   string
	OwnerID string
}

// Payload is the provider-agnostic message built once per run and reused
// unmodified for every batch.
type Payload struct {
	Title string
	Body  string
	// Data is the opaque data block delivered alongside the visible
	// notification (type, notification id, construction timestamp).
	Data map[string]string
	// Delivery hints, mapped to platform config by the sender.
	Priority  string
	Sound     string
	ChannelID string
	Badge     int
}

// ErrorKind classifies a failed send.
type ErrorKind string

const (
	// KindInvalidToken: the registration token is malformed or revoked.
	KindInvalidToken ErrorKind = "invalid_token"
	// KindUnregistered: the app was uninstalled or the token is no longer registered.
	KindUnregistered ErrorKind = "unregistered"
	// KindTransient: rate limit, timeout or server fault; the token is kept.
	KindTransient ErrorKind = "transient"
	// KindUnknown: anything the provider did not identify.
	KindUnknown ErrorKind = "unknown"
)

// Permanent reports whether the kind means the token will never succeed again
// and should be cleared from its owner's record.
func (k ErrorKind) Permanent() bool {
	return k == KindInvalidToken || k == KindUnregistered
}

// SendOutcome is the per-token result of one send attempt. Kind is empty when
// Success is true.
type SendOutcome struct {
	Token   string
	Success bool
	Kind    ErrorKind
}

// DeliveryResult accumulates outcomes across every batch of a run.
type DeliveryResult struct {
	SuccessCount  int
	FailureCount  int
	TargetCount   int
	InvalidTokens []string
}

// ErrorMessage renders the failure summary written back with the status
// record, or "" when every send succeeded.
func (r DeliveryResult) ErrorMessage() string {
	if r.FailureCount == 0 {
		return ""
	}
	return fmt.Sprintf("%d delivery failures out of %d total tokens", r.FailureCount, r.TargetCount)
}

// Status is the terminal state of a dispatch run.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// StatusRecord is the single write-back produced at the end of a run. The
// timestamp is assigned by the status writer (server time), not here.
type StatusRecord struct {
	Status       Status
	SuccessCount int
	FailureCount int
	TargetCount  int
	Error        string
	UserName     string
}
