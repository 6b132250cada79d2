package episode

import "time"

// Filter is a conjunction of optional predicates used by Content Store
// listing and by the Retriever's pre/post-filter step. A nil field means
// "no constraint on this dimension."
type Filter struct {
	Project       *string
	TaskType      *TaskType
	OutcomeStatus *OutcomeStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	MinUtility    *float64
	MaxUtility    *float64
}

// Match reports whether an episode satisfies every predicate set on f.
func (f Filter) Match(e *Episode) bool {
	if f.Project != nil && e.Project != *f.Project {
		return false
	}
	if f.TaskType != nil && e.Intent.TaskType != *f.TaskType {
		return false
	}
	if f.OutcomeStatus != nil && e.Outcome.Status != *f.OutcomeStatus {
		return false
	}
	if f.CreatedAfter != nil && e.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && e.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	if f.MinUtility != nil && e.Utility.Score < *f.MinUtility {
		return false
	}
	if f.MaxUtility != nil && e.Utility.Score > *f.MaxUtility {
		return false
	}
	return true
}

// IsZero reports whether the filter carries no constraints at all, the
// case list(filter) uses to skip per-record predicate evaluation.
func (f Filter) IsZero() bool {
	return f.Project == nil && f.TaskType == nil && f.OutcomeStatus == nil &&
		f.CreatedAfter == nil && f.CreatedBefore == nil &&
		f.MinUtility == nil && f.MaxUtility == nil
}
