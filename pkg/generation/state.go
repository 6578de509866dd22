package generation

// State is a step in a generation request's lifecycle.
//
//	Received -> BudgetChecked -> PromptBuilt -> Dispatched -> Recorded -> Completed
//	BudgetChecked -> Denied | Rejected
//	Dispatched -> Failed
//
// A request cancelled before dispatch also ends in Failed.
type State int

const (
	Received State = iota
	BudgetChecked
	PromptBuilt
	Dispatched
	Recorded
	Completed
	Denied
	Rejected
	Failed
)

func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case BudgetChecked:
		return "budget_checked"
	case PromptBuilt:
		return "prompt_built"
	case Dispatched:
		return "dispatched"
	case Recorded:
		return "recorded"
	case Completed:
		return "completed"
	case Denied:
		return "denied"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == Completed || s == Denied || s == Rejected || s == Failed
}
