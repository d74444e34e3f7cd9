package fanout

import "context"

// UserStore defines the contract for the durable store holding user records
// and their device tokens.
type UserStore interface {
	// ListUsers returns every user record. Used for the "all" audience.
	ListUsers(ctx context.Context) ([]User, error)

	// GetUser fetches one user record by id. A missing record is not an
	// error: it returns (nil, nil).
	GetUser(ctx context.Context, id string) (*User, error)

	// SetToken adds or replaces the device token on a user record (upsert).
	SetToken(ctx context.Context, userID, token string) error

	// ClearToken removes the token field from a user record. It must be
	// idempotent: clearing an already-cleared field is a no-op.
	ClearToken(ctx context.Context, userID string) error
}

// Sender defines the contract for the push provider.
type Sender interface {
	// Send delivers the payload to a single token. Provider failures are
	// folded into the returned outcome, never raised as errors.
	Send(ctx context.Context, token string, p Payload) SendOutcome

	// SendBatch delivers the payload to up to the provider's batch limit of
	// tokens in one call. Outcomes are position-aligned with the input
	// tokens. A non-nil error means the whole call faulted and no outcome
	// is known for any token.
	SendBatch(ctx context.Context, tokens []string, p Payload) ([]SendOutcome, error)
}

// StatusWriter persists the terminal status record of a run back onto the
// originating notification.
type StatusWriter interface {
	WriteStatus(ctx context.Context, notificationID string, rec StatusRecord) error
}
