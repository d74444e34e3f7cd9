package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

// MaxBatchSize is the provider-imposed multicast limit (FCM: 500 tokens per
// call). Config may lower it, never raise it.
const MaxBatchSize = 500

// DefaultBatchInterval is the nominal pause between consecutive batch sends.
// It is backpressure against provider rate limiting, not a correctness
// requirement.
const DefaultBatchInterval = 100 * time.Millisecond

const noTokensMessage = "No valid tokens found"

// Config tunes the dispatch loop.
type Config struct {
	BatchSize     int
	BatchInterval time.Duration
}

// Engine runs one notification to completion: resolve, build, dispatch,
// clean up, aggregate. A single Engine is safe for concurrent runs; the only
// shared mutable state is each user record's token field, and clearing an
// already-cleared field is a no-op.
type Engine struct {
	store   fanout.UserStore
	sender  fanout.Sender
	limiter *rate.Limiter
	batch   int
	logger  *slog.Logger
}

func NewEngine(store fanout.UserStore, sender fanout.Sender, cfg Config, logger *slog.Logger) *Engine {
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = DefaultBatchInterval
	}
	return &Engine{
		store:  store,
		sender: sender,
		// Burst 1 means the first batch goes out immediately and every
		// later batch waits out the interval.
		limiter: rate.NewLimiter(rate.Every(cfg.BatchInterval), 1),
		batch:   cfg.BatchSize,
		logger:  logger.With("component", "DeliveryEngine"),
	}
}

// Deliver processes one notification end to end and returns the status record
// to write back. It never returns an error: a resolution fault, an empty
// audience and every send failure are all folded into the record. Partial
// results survive batch-level faults; an all-zero failed record only occurs
// when no dispatch was attempted.
func (e *Engine) Deliver(ctx context.Context, n fanout.Notification) fanout.StatusRecord {
	runLogger := e.logger.With("notification_id", n.ID, "target", string(n.Target))

	recipients, userName, err := Resolve(ctx, e.store, n)
	if err != nil {
		runLogger.Error("Audience resolution failed", "err", err)
		return fanout.StatusRecord{Status: fanout.StatusFailed, Error: err.Error(), UserName: userName}
	}
	if len(recipients) == 0 {
		runLogger.Info("No recipients resolved; nothing to dispatch")
		return fanout.StatusRecord{Status: fanout.StatusFailed, Error: noTokensMessage, UserName: userName}
	}
	runLogger.Info("Recipients resolved", "count", len(recipients))

	payload := BuildPayload(n.Title, n.Message, n.ID)
	outcomes := e.dispatch(ctx, recipients, payload, runLogger)
	e.cleanupInvalid(ctx, recipients, outcomes, runLogger)

	result := Aggregate(outcomes, len(recipients))
	runLogger.Info("Delivery complete",
		"success", result.SuccessCount,
		"failure", result.FailureCount,
		"invalid", len(result.InvalidTokens),
	)

	status := fanout.StatusFailed
	if result.SuccessCount > 0 {
		status = fanout.StatusDelivered
	}
	return fanout.StatusRecord{
		Status:       status,
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
		TargetCount:  result.TargetCount,
		Error:        result.ErrorMessage(),
		UserName:     userName,
	}
}

// dispatch sends the payload to every recipient and returns one outcome per
// token, in resolution order. Batches are sent strictly in sequence; a
// batch-level fault marks that batch failed and the loop continues.
func (e *Engine) dispatch(ctx context.Context, recipients []fanout.RecipientToken, payload fanout.Payload, logger *slog.Logger) []fanout.SendOutcome {
	if len(recipients) == 1 {
		return []fanout.SendOutcome{e.sender.Send(ctx, recipients[0].Token, payload)}
	}

	outcomes := make([]fanout.SendOutcome, 0, len(recipients))
	for start := 0; start < len(recipients); start += e.batch {
		if err := e.limiter.Wait(ctx); err != nil {
			// Context gone mid-run; send the remaining batches unpaced
			// rather than dropping them.
			logger.Warn("Batch pacing interrupted", "err", err)
		}

		end := min(start+e.batch, len(recipients))
		batchNum := start/e.batch + 1
		tokens := make([]string, end-start)
		for i, r := range recipients[start:end] {
			tokens[i] = r.Token
		}

		batchOutcomes, err := e.sender.SendBatch(ctx, tokens, payload)
		if err != nil {
			// No partial success is assumed for a faulted call.
			logger.Error("Batch send faulted; marking whole batch failed",
				"batch", batchNum, "size", len(tokens), "err", err)
			for _, token := range tokens {
				outcomes = append(outcomes, fanout.SendOutcome{Token: token, Kind: fanout.KindTransient})
			}
			continue
		}
		outcomes = append(outcomes, batchOutcomes...)
		logger.Debug("Batch dispatched", "batch", batchNum, "size", len(tokens))
	}
	return outcomes
}

// cleanupInvalid clears tokens the provider reported permanently invalid.
// Writes are issued concurrently and best-effort: a failed clear is logged
// and retried implicitly on the next run. The run joins on all of them so
// completion is deterministic.
func (e *Engine) cleanupInvalid(ctx context.Context, recipients []fanout.RecipientToken, outcomes []fanout.SendOutcome, logger *slog.Logger) {
	owners := make(map[string]string, len(recipients))
	for _, r := range recipients {
		owners[r.Token] = r.OwnerID
	}

	var wg sync.WaitGroup
	for _, out := range outcomes {
		if out.Success || !out.Kind.Permanent() {
			continue
		}
		ownerID, ok := owners[out.Token]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(ownerID string, kind fanout.ErrorKind) {
			defer wg.Done()
			if err := e.store.ClearToken(ctx, ownerID); err != nil {
				logger.Warn("Failed to clear invalid token", "user_id", ownerID, "err", err)
				return
			}
			logger.Info("Cleared invalid token", "user_id", ownerID, "kind", string(kind))
		}(ownerID, out.Kind)
	}
	wg.Wait()
}
