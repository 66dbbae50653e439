package engine

// PhaseEdges lists every transition the controller may take. Anything else is refused.
var PhaseEdges = map[Phase][]Phase{
	PhaseAwaitingHost:  {PhaseInitializing},
	PhaseInitializing:  {PhaseEnrolling},
	PhaseEnrolling:     {PhaseRoundStarting},
	PhaseRoundStarting: {PhaseRoundRunning},
	PhaseRoundRunning:  {PhaseInitializing},
}

func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range PhaseEdges[p] {
		if next == target {
			return true
		}
	}
	return false
}
