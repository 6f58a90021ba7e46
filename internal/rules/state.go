package rules

import (
	"fmt"

	"github.com/quellwerk/akquise-engine/internal/posting"
)

// transitions is the forward-only status graph. The single allowed backward
// edge is the explicit reset of a decided posting back to pending.
var transitions = map[string][]string{
	posting.StatusPending:     {posting.StatusShortlisted, posting.StatusReview, posting.StatusRejected, posting.StatusDuplicate, posting.StatusError},
	posting.StatusShortlisted: {posting.StatusAssessed, posting.StatusRejected, posting.StatusError},
	posting.StatusAssessed:    {posting.StatusApplied, posting.StatusReview, posting.StatusRejected, posting.StatusError},
	posting.StatusReview:      {posting.StatusApplied, posting.StatusRejected},
	posting.StatusApplied:     {},
	posting.StatusRejected:    {},
	posting.StatusDuplicate:   {},
	posting.StatusError:       {posting.StatusPending},
}

// decidedStatuses may be reset back to pending for re-scoring.
var decidedStatuses = map[string]bool{
	posting.StatusApplied:  true,
	posting.StatusRejected: true,
	posting.StatusReview:   true,
	posting.StatusAssessed: true,
}

// CanTransition reports whether moving a posting from one status to
// another is allowed.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error for a forbidden move.
func ValidateTransition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("status transition %s -> %s is not allowed", from, to)
	}
	return nil
}

// CanReset reports whether the posting's decision state may be cleared
// back to pending.
func CanReset(status string) bool {
	return decidedStatuses[status]
}
