package delivery_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- testify mock store, used where call expectations matter ---

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) ListUsers(ctx context.Context) ([]fanout.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fanout.User), args.Error(1)
}

func (m *mockUserStore) GetUser(ctx context.Context, id string) (*fanout.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fanout.User), args.Error(1)
}

func (m *mockUserStore) SetToken(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *mockUserStore) ClearToken(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- hand-rolled fakes for the engine tests ---

// fakeStore is a UserStore backed by a slice; clear calls are recorded so
// tests can assert cleanup behavior without ordering assumptions.
type fakeStore struct {
	mu       sync.Mutex
	users    []fanout.User
	listErr  error
	getErr   error
	clearErr error
	cleared  []string
}

func (s *fakeStore) ListUsers(context.Context) ([]fanout.User, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.users, nil
}

func (s *fakeStore) GetUser(_ context.Context, id string) (*fanout.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) SetToken(context.Context, string, string) error { return nil }

func (s *fakeStore) ClearToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = append(s.cleared, userID)
	return nil
}

func (s *fakeStore) clearedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cleared...)
}

// fakeSender records every call. By default everything succeeds; tests
// override sendFunc/batchFunc to inject failures.
type fakeSender struct {
	mu         sync.Mutex
	singleSent []string
	batchSizes []int
	batchTimes []time.Time
	sendFunc   func(token string) fanout.SendOutcome
	batchFunc  func(call int, tokens []string) ([]fanout.SendOutcome, error)
}

func (f *fakeSender) Send(_ context.Context, token string, _ fanout.Payload) fanout.SendOutcome {
	f.mu.Lock()
	f.singleSent = append(f.singleSent, token)
	f.mu.Unlock()
	if f.sendFunc != nil {
		return f.sendFunc(token)
	}
	return fanout.SendOutcome{Token: token, Success: true}
}

func (f *fakeSender) SendBatch(_ context.Context, tokens []string, _ fanout.Payload) ([]fanout.SendOutcome, error) {
	f.mu.Lock()
	call := len(f.batchSizes)
	f.batchSizes = append(f.batchSizes, len(tokens))
	f.batchTimes = append(f.batchTimes, time.Now())
	f.mu.Unlock()
	if f.batchFunc != nil {
		return f.batchFunc(call, tokens)
	}
	outcomes := make([]fanout.SendOutcome, len(tokens))
	for i, token := range tokens {
		outcomes[i] = fanout.SendOutcome{Token: token, Success: true}
	}
	return outcomes, nil
}

func allSuccess(tokens []string) []fanout.SendOutcome {
	outcomes := make([]fanout.SendOutcome, len(tokens))
	for i, token := range tokens {
		outcomes[i] = fanout.SendOutcome{Token: token, Success: true}
	}
	return outcomes
}
