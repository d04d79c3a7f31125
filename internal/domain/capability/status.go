package capability

// Status is the observed installation state of an item.
type Status int

const (
	// StatusAbsent means the item is definitely not installed.
	StatusAbsent Status = iota
	// StatusPresent means the item is installed.
	StatusPresent
	// StatusUnknown means detection itself failed. Install decisions
	// treat Unknown as Absent, but the uncertainty is kept for
	// reporting.
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusPresent:
		return "present"
	case StatusUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Outcome is the result of applying one item.
type Outcome int

const (
	OutcomeInstalled Outcome = iota
	OutcomeSkipped
	OutcomeFailed
	OutcomeRemoved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInstalled:
		return "installed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeRemoved:
		return "removed"
	default:
		return "invalid"
	}
}
