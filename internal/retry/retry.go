// Package retry implements the sample source's load retry/backoff
// policy: a capped, increasing delay between attempts at the same
// loadable and a fatal threshold past which the error is rethrown.
package retry

import "time"

// MinLoadableRetryCount is the number of consecutive failures tolerated
// before MaybeThrowError rethrows. A 4th failure (count > 3) is fatal.
const MinLoadableRetryCount = 3

const maxDelay = 5 * time.Second

// Delay returns the backoff before retrying after the n-th consecutive
// failure (n starts at 1). It grows by one second per failure and
// saturates at 5 seconds: Delay(1)=0, Delay(2)=1s, Delay(3)=2s, ...
func Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	d := time.Duration(n-1) * time.Second
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// State tracks the consecutive-failure count and the error that caused
// it for a single in-flight loadable.
type State struct {
	count     int
	err       error
	failedAt  time.Time
	hasFailed bool
}

// RecordFailure stores the error and bumps the consecutive-failure
// counter. now is passed in rather than read from time.Now so tests can
// drive the clock explicitly.
func (s *State) RecordFailure(err error, now time.Time) {
	s.count++
	s.err = err
	s.failedAt = now
	s.hasFailed = true
}

// Clear drops the stored failure and the consecutive-failure count,
// once a retry succeeds or the loadable is abandoned.
func (s *State) Clear() {
	*s = State{}
}

// ClearError drops the pending failure so the same loadable can be
// resumed, but keeps the consecutive-failure count: a loadable that
// keeps failing must still cross the fatal threshold eventually.
func (s *State) ClearError() {
	s.err = nil
	s.failedAt = time.Time{}
	s.hasFailed = false
}

// IsBackedOff reports whether a failure is currently pending retry.
func (s *State) IsBackedOff() bool { return s.hasFailed }

// Count returns the consecutive-failure count (0 if none recorded).
func (s *State) Count() int { return s.count }

// ReadyAt returns the time at which the backoff for the current failure
// elapses, i.e. failedAt + Delay(count).
func (s *State) ReadyAt() time.Time {
	return s.failedAt.Add(Delay(s.count))
}

// ShouldResume reports whether now has passed the backoff delay for the
// current failure, i.e. the same loadable should be resumed.
func (s *State) ShouldResume(now time.Time) bool {
	if !s.hasFailed {
		return false
	}
	return !now.Before(s.ReadyAt())
}

// MaybeThrow returns the stored error once the consecutive-failure count
// exceeds MinLoadableRetryCount, and nil otherwise (the caller should
// keep retrying silently below the threshold).
func (s *State) MaybeThrow() error {
	if s.hasFailed && s.count > MinLoadableRetryCount {
		return s.err
	}
	return nil
}
