package engine

import (
	"context"
	"time"

	"github.com/campus-reserve/backend/internal/storage/models"
)

// Retry defaults for admissions that lose a storage-layer race.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 500 * time.Millisecond
)

// Decision is the outcome of the retry policy for one attempt.
type Decision int

const (
	Stop Decision = iota
	Retry
)

// NextAttempt is the retry policy, decoupled from I/O so it can be tested
// without a live store. attempt is 1-based. Only a lost storage-layer race
// is retryable; every other outcome (inactive kind, missing note, duplicate
// owner, slot conflict, capacity) is deterministic and retrying cannot
// change it.
func NextAttempt(err error, attempt, maxAttempts int) Decision {
	if err == nil || attempt >= maxAttempts {
		return Stop
	}
	if HasCode(err, CodeRaceLost) {
		return Retry
	}
	return Stop
}

// AdmitWithRetry wraps Admit for resource kinds without a precomputed
// slot table — laboratories, which are exclusive-per-day and registered
// dynamically. On race_lost it re-runs the availability query; if the date
// still looks open it retries after a fixed backoff, otherwise it reports
// capacity_exceeded naming the conflicting owner where available. When
// attempts are exhausted the final race_lost tells the caller to pick
// another date.
func (e *Engine) AdmitWithRetry(ctx context.Context, req AdmissionRequest) (*models.Reservation, error) {
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		res, err := e.Admit(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if NextAttempt(err, attempt, e.maxAttempts) == Stop {
			break
		}

		avail, availErr := e.Availability(ctx, req.ResourceKind, req.Date)
		if availErr == nil && avail.Remaining == 0 {
			return nil, e.claimedByConcurrent(ctx, req)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.backoff):
		}
	}

	if engineErr, ok := AsError(lastErr); ok && engineErr.Code == CodeRaceLost {
		return nil, &Error{
			Code: CodeRaceLost,
			Message: "the resource was claimed by a concurrent request; " +
				"please choose another date",
		}
	}
	return nil, lastErr
}

// claimedByConcurrent builds the capacity_exceeded outcome for a date that
// filled up while retrying, naming the winning owner when it can be read.
func (e *Engine) claimedByConcurrent(ctx context.Context, req AdmissionRequest) *Error {
	result := &Error{
		Code: CodeCapacityExceeded,
		Message: req.ResourceKind + " on " + req.Date +
			" was claimed by a concurrent request; please choose another date",
	}

	holders, err := e.reservations.ListForDate(ctx, req.ResourceKind, req.Date)
	if err == nil && len(holders) > 0 {
		result.ConflictingOwner = holders[len(holders)-1].OwnerID
	}
	return result
}
