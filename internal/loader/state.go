package loader

import "fmt"

// State is a step in the linear load sequence.
type State int

// Load states, in order.
const (
	StateUnopened State = iota
	StateHeaderRead
	StateTableRead
	StateSegmentSelected
	StateMapped
	StateExecuting
	StateReturned
	StateCleaned
)

// String returns a string representation of State.
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateHeaderRead:
		return "header_read"
	case StateTableRead:
		return "table_read"
	case StateSegmentSelected:
		return "segment_selected"
	case StateMapped:
		return "mapped"
	case StateExecuting:
		return "executing"
	case StateReturned:
		return "returned"
	case StateCleaned:
		return "cleaned"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}
