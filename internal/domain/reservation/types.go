package reservation

// Status is the reservation state machine. Transitions are one-way:
// pending -> confirmed or pending -> declined. The terminal states never
// reverse or re-enter pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDeclined:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusDeclined
}

// CanTransitionTo is the single owner of the transition rule.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.IsValid() {
		return false
	}
	return s == StatusPending && next.IsTerminal()
}

// Source is the channel a request arrived on.
type Source string

const (
	SourceCall Source = "call"
	SourceSMS  Source = "sms"
	SourceChat Source = "chat"
)

func (s Source) String() string {
	return string(s)
}

func (s Source) IsValid() bool {
	switch s {
	case SourceCall, SourceSMS, SourceChat:
		return true
	default:
		return false
	}
}
