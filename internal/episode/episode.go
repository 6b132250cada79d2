// Package episode defines the core data model: captured
// assistant/developer sessions reduced to structured intent, context, and
// outcome, carrying a learned utility score that evolves under feedback.
package episode

import "time"

// TaskType classifies the kind of work an episode's intent represents.
type TaskType string

const (
	TaskBugfix   TaskType = "bugfix"
	TaskFeature  TaskType = "feature"
	TaskRefactor TaskType = "refactor"
	TaskTest     TaskType = "test"
	TaskDocs     TaskType = "docs"
	TaskResearch TaskType = "research"
	TaskDebug    TaskType = "debug"
	TaskSetup    TaskType = "setup"
	TaskUnknown  TaskType = "unknown"
)

// OutcomeStatus classifies how an episode's session concluded.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomePartial OutcomeStatus = "partial"
	OutcomeFailure OutcomeStatus = "failure"
	OutcomeUnknown OutcomeStatus = "unknown"
)

// IsTerminal reports whether a status represents a finished session, as
// opposed to one still in progress.
func (s OutcomeStatus) IsTerminal() bool {
	switch s {
	case OutcomeSuccess, OutcomePartial, OutcomeFailure:
		return true
	default:
		return false
	}
}

// Intent captures what the developer asked for.
type Intent struct {
	RawPrompt  string   `json:"raw_prompt"`
	Summary    string   `json:"summary,omitempty"`
	TaskType   TaskType `json:"task_type"`
	DomainTags []string `json:"domain_tags,omitempty"`
}

// ErrorEvent records a single error surfaced during the session.
type ErrorEvent struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Resolved bool   `json:"resolved"`
}

// Context captures what the assistant touched while working the intent.
type Context struct {
	FilesRead     []string     `json:"files_read,omitempty"`
	FilesModified []string     `json:"files_modified,omitempty"`
	ToolsInvoked  []string     `json:"tools_invoked,omitempty"`
	Errors        []ErrorEvent `json:"errors,omitempty"`
}

// TestCounts is a before/after snapshot of a test run.
type TestCounts struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Outcome captures how the session concluded.
type Outcome struct {
	Status      OutcomeStatus `json:"status"`
	TestsBefore *TestCounts   `json:"tests_before,omitempty"`
	TestsAfter  *TestCounts   `json:"tests_after,omitempty"`
	CommitRef   string        `json:"commit_ref,omitempty"`
}

// RetrievalEvent is one entry in an episode's bounded retrieval history.
type RetrievalEvent struct {
	At       time.Time `json:"at"`
	Query    string    `json:"query"`
	Project  string    `json:"project,omitempty"`
	Helpful  *bool     `json:"helpful,omitempty"`
}

// MaxRetrievalHistory bounds RetrievalHistory; the oldest entry is
// dropped once a new one would exceed it. spec.md §9 leaves this cap as
// an implementer choice.
const MaxRetrievalHistory = 50

// Utility is the learned value estimate the Utility Engine maintains.
type Utility struct {
	Score            float64          `json:"score"`
	RetrievalCount   int              `json:"retrieval_count"`
	HelpfulCount     float64          `json:"helpful_count"`
	LastRetrievedAt  *time.Time       `json:"last_retrieved_at,omitempty"`
	LastUpdatedAt    time.Time        `json:"last_updated_at"`
	RetrievalHistory []RetrievalEvent `json:"retrieval_history,omitempty"`
}

// AppendRetrieval records a retrieval-footprint entry, enforcing
// MaxRetrievalHistory by dropping the oldest entry (entries are kept
// most-recent-first).
func (u *Utility) AppendRetrieval(ev RetrievalEvent) {
	u.RetrievalHistory = append([]RetrievalEvent{ev}, u.RetrievalHistory...)
	if len(u.RetrievalHistory) > MaxRetrievalHistory {
		u.RetrievalHistory = u.RetrievalHistory[:MaxRetrievalHistory]
	}
}

// IndexState records whether an episode persisted to the content store
// has been projected into the vector index: IndexStatePending until a
// projection succeeds (e.g. the embedding adapter was unavailable at
// capture time; see engerr.CodeEmbeddingUnavailable), then IndexStateIndexed.
type IndexState string

const (
	IndexStatePending IndexState = "pending"
	IndexStateIndexed IndexState = "indexed"
)

// Episode is the full captured record. Identity and equality are by ID
// alone; every other field may be rewritten in place by the Indexer
// (metadata mirror) or the Utility Engine (score fields).
type Episode struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   time.Time  `json:"ended_at"`
	Project   string     `json:"project,omitempty"`

	Intent  Intent  `json:"intent"`
	Context Context `json:"context"`
	Outcome Outcome `json:"outcome"`
	Utility Utility `json:"utility"`

	IndexState IndexState `json:"index_state"`
}

// Input is the caller-supplied payload for capture; server-assigned
// fields (ID, Utility, IndexState) are not part of it.
type Input struct {
	CreatedAt time.Time
	EndedAt   time.Time
	Project   string
	Intent    Intent
	Context   Context
	Outcome   Outcome
}
