// Package delivery implements the fan-out engine: audience resolution,
// payload construction, batched dispatch, invalid-token cleanup and result
// aggregation for one notification run.
package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

const (
	// AllUsersName is the display name recorded for broadcast runs.
	AllUsersName = "All Users"
	// UnknownUserName is recorded when a specific recipient has no display name.
	UnknownUserName = "Unknown User"
)

// Resolve turns a notification's target selector into the deduplicated list
// of recipient tokens, plus the display name written back with the status
// record.
//
// The recipient set is deduplicated by token value so a token maps to at most
// one owner for cleanup. An unknown target, a missing user record or an empty
// token field all yield an empty list, not an error; only a store fault is an
// error, and it aborts the run before any dispatch.
func Resolve(ctx context.Context, store fanout.UserStore, n fanout.Notification) ([]fanout.RecipientToken, string, error) {
	switch n.Target {
	case fanout.TargetAll:
		users, err := store.ListUsers(ctx)
		if err != nil {
			return nil, AllUsersName, fmt.Errorf("listing users: %w", err)
		}
		seen := make(map[string]struct{}, len(users))
		var recipients []fanout.RecipientToken
		for _, u := range users {
			token := strings.TrimSpace(u.FCMToken)
			if token == "" {
				continue
			}
			if _, dup := seen[token]; dup {
				// First owner wins; a token must not map to two owners.
				continue
			}
			seen[token] = struct{}{}
			recipients = append(recipients, fanout.RecipientToken{Token: token, OwnerID: u.ID})
		}
		return recipients, AllUsersName, nil

	case fanout.TargetSpecific:
		if n.SpecificUser == "" {
			return nil, AllUsersName, nil
		}
		user, err := store.GetUser(ctx, n.SpecificUser)
		if err != nil {
			return nil, AllUsersName, fmt.Errorf("fetching user %s: %w", n.SpecificUser, err)
		}
		if user == nil {
			return nil, AllUsersName, nil
		}
		token := strings.TrimSpace(user.FCMToken)
		if token == "" {
			return nil, AllUsersName, nil
		}
		name := user.Name
		if name == "" {
			name = UnknownUserName
		}
		return []fanout.RecipientToken{{Token: token, OwnerID: user.ID}}, name, nil

	default:
		return nil, AllUsersName, nil
	}
}
