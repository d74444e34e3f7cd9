package delivery

import "github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"

// Aggregate sums the per-token outcomes of every batch into the run's
// delivery result. targetCount is the full resolved token count, so
// SuccessCount+FailureCount == TargetCount holds whenever dispatch was
// attempted for every recipient.
func Aggregate(outcomes []fanout.SendOutcome, targetCount int) fanout.DeliveryResult {
	result := fanout.DeliveryResult{TargetCount: targetCount}
	for _, out := range outcomes {
		if out.Success {
			result.SuccessCount++
			continue
		}
		result.FailureCount++
		if out.Kind.Permanent() {
			result.InvalidTokens = append(result.InvalidTokens, out.Token)
		}
	}
	return result
}
