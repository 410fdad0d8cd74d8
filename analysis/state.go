package analysis

import (
	"sync"

	"hermannm.dev/hazardanalysis/metrics"
)

// Token identifies one analysis run. Tokens increase monotonically across all kinds.
type Token uint64

// State holds the loading status and latest result of each analysis kind.
//
// Every run takes a token when it starts, and its outcome is only applied if no newer run of the
// same kind has started since. When runs overlap, the most recently started one wins, regardless
// of which finishes last.
type State struct {
	lock      sync.Mutex
	lastToken Token
	flows     map[Kind]*FlowState
	// Kind of the most recently applied result, 0 if none.
	latestKind Kind
}

// FlowState is the state of one analysis kind.
type FlowState struct {
	Status Status `json:"status"`
	// Error message of the latest run, if rejected.
	Error  string `json:"error,omitempty"`
	Result Result `json:"result,omitempty"`
	// Token of the latest started run, 0 if none.
	Token Token `json:"token"`
}

func NewState() *State {
	flows := make(map[Kind]*FlowState, len(Kinds))
	for _, kind := range Kinds {
		flows[kind] = &FlowState{Status: StatusIdle}
	}
	return &State{flows: flows}
}

// Begin marks the analysis kind as pending and returns the token of the new run. Any previous
// result of the kind is discarded.
func (state *State) Begin(kind Kind) Token {
	state.lock.Lock()
	defer state.lock.Unlock()

	state.lastToken++
	flow := state.flows[kind]
	*flow = FlowState{Status: StatusPending, Token: state.lastToken}
	if state.latestKind == kind {
		state.latestKind = 0
	}

	return state.lastToken
}

// Fulfill stores the result of the run with the given token, if it is still the latest run of its
// kind. Returns false if the result was discarded.
func (state *State) Fulfill(kind Kind, token Token, result Result) (applied bool) {
	state.lock.Lock()
	defer state.lock.Unlock()

	flow := state.flows[kind]
	if flow.Token != token {
		metrics.SupersededResultsTotal.WithLabelValues(kind.String()).Inc()
		return false
	}

	*flow = FlowState{Status: StatusFulfilled, Result: result, Token: token}
	state.latestKind = kind
	return true
}

// Reject stores the error of the run with the given token, if it is still the latest run of its
// kind. Returns false if the error was discarded.
func (state *State) Reject(kind Kind, token Token, err error) (applied bool) {
	state.lock.Lock()
	defer state.lock.Unlock()

	flow := state.flows[kind]
	if flow.Token != token {
		metrics.SupersededResultsTotal.WithLabelValues(kind.String()).Inc()
		return false
	}

	*flow = FlowState{Status: StatusRejected, Error: err.Error(), Token: token}
	if state.latestKind == kind {
		state.latestKind = 0
	}
	return true
}

// Clear discards the result or error of the analysis kind. A run of the kind that is still pending
// will still apply its outcome when it finishes.
func (state *State) Clear(kind Kind) {
	state.lock.Lock()
	defer state.lock.Unlock()

	flow := state.flows[kind]
	if flow.Status != StatusPending {
		*flow = FlowState{Status: StatusIdle, Token: flow.Token}
	}
	if state.latestKind == kind {
		state.latestKind = 0
	}
}

func (state *State) ClearAll() {
	for _, kind := range Kinds {
		state.Clear(kind)
	}
}

// Get returns a copy of the state of the analysis kind.
func (state *State) Get(kind Kind) FlowState {
	state.lock.Lock()
	defer state.lock.Unlock()

	return *state.flows[kind]
}

// Result returns the current result of the analysis kind, if fulfilled.
func (state *State) Result(kind Kind) (Result, bool) {
	flow := state.Get(kind)
	return flow.Result, flow.Status == StatusFulfilled && flow.Result != nil
}

// Snapshot returns a copy of the state of every analysis kind.
func (state *State) Snapshot() map[Kind]FlowState {
	state.lock.Lock()
	defer state.lock.Unlock()

	snapshot := make(map[Kind]FlowState, len(state.flows))
	for kind, flow := range state.flows {
		snapshot[kind] = *flow
	}
	return snapshot
}

// Latest returns the most recently applied result of any kind, if it is still current.
func (state *State) Latest() (Result, bool) {
	state.lock.Lock()
	defer state.lock.Unlock()

	if state.latestKind == 0 {
		return nil, false
	}
	flow := state.flows[state.latestKind]
	return flow.Result, flow.Result != nil
}
