package mode

// State is the Mode Controller's current mode.
type State int

const (
	MenuDisplayed State = iota
	LiveMonitor
	BasicHRVSession
	CloudHRVSession
	HistoryView
)

func (s State) String() string {
	switch s {
	case MenuDisplayed:
		return "menu"
	case LiveMonitor:
		return "live_monitor"
	case BasicHRVSession:
		return "basic_hrv"
	case CloudHRVSession:
		return "cloud_hrv"
	case HistoryView:
		return "history"
	default:
		return "unknown"
	}
}

// Sampling reports whether the state runs the sampler.
func (s State) Sampling() bool {
	return s == LiveMonitor || s == BasicHRVSession || s == CloudHRVSession
}

// Timed reports whether the state ends on its own after the session
// duration.
func (s State) Timed() bool {
	return s == BasicHRVSession || s == CloudHRVSession
}

// MenuOption is one entry of the main menu.
type MenuOption struct {
	Label string
	State State
}

// DefaultMenu is the main menu in display order.
var DefaultMenu = []MenuOption{
	{Label: "Measure HR", State: LiveMonitor},
	{Label: "BasicHRV", State: BasicHRVSession},
	{Label: "Kubios", State: CloudHRVSession},
	{Label: "History", State: HistoryView},
}
