package domain

// DispatchRule is a SIP routing rule as reported by the RTC provider.
type DispatchRule struct {
	ID   string
	Name string
}

// NotifyMode selects how a realtime notification failure is reported.
type NotifyMode int

const (
	// NotifyStrict returns delivery failures to the caller.
	NotifyStrict NotifyMode = iota
	// NotifyBestEffort logs delivery failures and reports success.
	NotifyBestEffort
)

func (m NotifyMode) String() string {
	switch m {
	case NotifyStrict:
		return "strict"
	case NotifyBestEffort:
		return "best_effort"
	default:
		return "unknown"
	}
}
