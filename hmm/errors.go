package hmm

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid HMM configuration, fatal at construction —
// spec.md §7's ConfigError.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "hmm: invalid configuration: " + e.Reason }

// DataError reports a SiteSummary that violates an invariant the HMM
// requires to run — spec.md §7's DataError. It names the offending site by
// index into the run's site sequence.
type DataError struct {
	SiteIndex int
	Reason    string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("hmm: data error at site %d: %s", e.SiteIndex, e.Reason)
}

// ErrCancelled is returned, wrapped with the index of the last completed
// site, when Run observes a tripped cancellation token — spec.md §7's
// Cancelled. Callers can still inspect the partial results Run returns
// alongside the error.
var ErrCancelled = errors.New("hmm: run cancelled")

// cancelledAt wraps ErrCancelled with the index of the last site the run
// completed before observing cancellation.
type cancelledAt struct {
	lastCompleted int
}

func (e *cancelledAt) Error() string {
	return fmt.Sprintf("%v (last completed site %d)", ErrCancelled, e.lastCompleted)
}

func (e *cancelledAt) Unwrap() error { return ErrCancelled }
