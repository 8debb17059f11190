package production

import (
	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// State is a step of the batch lifecycle
type State string

const (
	StateReceived           State = "RECEIVED"
	StateValidated          State = "VALIDATED"
	StateFeasibilityChecked State = "FEASIBILITY_CHECKED"
	StateCommitted          State = "COMMITTED"
	StateSummarized         State = "SUMMARIZED"
	StateRejected           State = "REJECTED"
	StateFailed             State = "FAILED"
)

// Outcome is the result of processing a batch: exactly one of Committed,
// ValidationFailed or PersistenceFailed
type Outcome interface {
	// State is the terminal state the batch reached
	State() State
	outcome()
}

// Committed carries the persisted batch
type Committed struct {
	Result *entities.BatchResult
}

// ValidationFailed rejects the whole batch; nothing was written
type ValidationFailed struct {
	Error   string
	Details []string
	// Feasibility is set when the rejection came from the stock check
	Feasibility *entities.AggregatedFeasibilityReport
}

// PersistenceFailed reports a store or resolution fault; nothing was written
type PersistenceFailed struct {
	Error string
	Cause error
}

func (Committed) State() State         { return StateSummarized }
func (ValidationFailed) State() State  { return StateRejected }
func (PersistenceFailed) State() State { return StateFailed }

func (Committed) outcome()         {}
func (ValidationFailed) outcome()  {}
func (PersistenceFailed) outcome() {}

// Label names the outcome for metrics
func Label(o Outcome) string {
	switch o.(type) {
	case Committed:
		return "committed"
	case ValidationFailed:
		return "validation_failed"
	default:
		return "persistence_failed"
	}
}
