package swap

// State is a stage of the swap execution pipeline
type State string

const (
	StateStart      State = "START"
	StateFetchQuote State = "FETCH_QUOTE"
	StateBuildTx    State = "BUILD_TX"
	StateSign       State = "SIGN"
	StateSubmit     State = "SUBMIT"
	StateConfirming State = "CONFIRMING"

	StateSucceeded      State = "SUCCEEDED"
	StateFailedNoRoute  State = "FAILED_NO_ROUTE"
	StateFailedQuote    State = "FAILED_QUOTE"
	StateFailedBuild    State = "FAILED_BUILD"
	StateFailedSign     State = "FAILED_SIGN"
	StateFailedRejected State = "FAILED_REJECTED"
	StateFailedSubmit   State = "FAILED_SUBMIT"
	StateFailedOnChain  State = "FAILED_ON_CHAIN"
	StateFailedUnknown  State = "FAILED_UNKNOWN"
)

// IsTerminal reports whether the pipeline stops in s
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailedNoRoute, StateFailedQuote, StateFailedBuild, StateFailedSign,
		StateFailedRejected, StateFailedSubmit, StateFailedOnChain, StateFailedUnknown:
		return true
	}
	return false
}

// Submitted reports whether a terminal state was reached after the transaction may have left the process
func (s State) Submitted() bool {
	switch s {
	case StateSucceeded, StateFailedOnChain, StateFailedUnknown:
		return true
	}
	return false
}

func (s State) String() string { return string(s) }
