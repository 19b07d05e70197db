package collector

type State string

const (
	StateIdle       State = "IDLE"
	StateRunning    State = "RUNNING"
	StateFetching   State = "FETCHING"
	StateValidating State = "VALIDATING"
	StateScoring    State = "SCORING"
	StateStopping   State = "STOPPING"
	StateDone       State = "DONE"
)

func (s State) String() string {
	return string(s)
}
