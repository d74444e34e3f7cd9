// Package firestore implements the user store and the notification status
// write-back on Google Cloud Firestore.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

const usersCollection = "users"

// UserStore implements fanout.UserStore over the users collection.
type UserStore struct {
	client *firestore.Client
}

func NewUserStore(client *firestore.Client) *UserStore {
	return &UserStore{client: client}
}

// userRecord is the internal DB representation of a user document. Only the
// fields the dispatcher touches are mapped.
type userRecord struct {
	UserName  string    `firestore:"userName"`
	FCMToken  string    `firestore:"fcmToken"`
	UpdatedAt time.Time `firestore:"updatedAt,omitempty"`
}

func (s *UserStore) ListUsers(ctx context.Context) ([]fanout.User, error) {
	iter := s.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []fanout.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record userRecord
		if err := doc.DataTo(&record); err != nil {
			// Corrupt rows are skipped, not fatal to the whole audience.
			continue
		}
		users = append(users, fanout.User{ID: doc.Ref.ID, Name: record.UserName, FCMToken: record.FCMToken})
	}
	return users, nil
}

func (s *UserStore) GetUser(ctx context.Context, id string) (*fanout.User, error) {
	doc, err := s.userRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}

	var record userRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", id, err)
	}
	return &fanout.User{ID: doc.Ref.ID, Name: record.UserName, FCMToken: record.FCMToken}, nil
}

func (s *UserStore) SetToken(ctx context.Context, userID, token string) error {
	_, err := s.userRef(userID).Set(ctx, map[string]interface{}{
		"fcmToken":  token,
		"updatedAt": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

// ClearToken removes the token field only; the user record itself survives.
// A missing record counts as already cleared.
func (s *UserStore) ClearToken(ctx context.Context, userID string) error {
	_, err := s.userRef(userID).Update(ctx, []firestore.Update{
		{Path: "fcmToken", Value: firestore.Delete},
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (s *UserStore) userRef(id string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(id)
}
