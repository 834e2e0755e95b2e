package publish

import "time"

// Step names a stage of a run.
type Step string

const (
	StepReadBase        Step = "read_base"
	StepCreateBranch    Step = "create_branch"
	StepReadBranch      Step = "read_branch"
	StepCreateBlobs     Step = "create_blobs"
	StepCreateTree      Step = "create_tree"
	StepCreateCommit    Step = "create_commit"
	StepUpdateRef       Step = "update_ref"
	StepOpenPullRequest Step = "open_pull_request"
	StepRollback        Step = "rollback"
)

// Status is the state a step reports.
type Status string

const (
	StatusStarted   Status = "started"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Event is one step transition of a run.
type Event struct {
	RunID  string    `json:"runId"`
	Step   Step      `json:"step"`
	Status Status    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// Observer receives run events. Observe is called synchronously from the
// run and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f.
func (f ObserverFunc) Observe(e Event) {
	f(e)
}
