package engine

import "time"

const (
	DefaultTickRate      = 30
	DefaultRoundDuration = 5 * time.Second
)

func DefaultConfig() Config {
	return Config{TickRate: DefaultTickRate, RoundDuration: DefaultRoundDuration}
}

// RoundTicks is the round length in ticks; 5s at 30 ticks/s is 150.
func (c Config) RoundTicks() int {
	return int(c.RoundDuration * time.Duration(c.TickRate) / time.Second)
}

// TickInterval is the wall-clock spacing of ticks for whoever drives them.
func (c Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / DefaultTickRate
	}
	return time.Second / time.Duration(c.TickRate)
}

func NewState(selfID string) *State {
	return &State{
		Identity: NewIdentity(selfID),
		Roster:   NewRoster(),
		Phase:    PhaseAwaitingHost,
	}
}

func ContainsPhase(snaps []Snapshot, phase Phase) bool {
	for _, s := range snaps {
		if s.Phase == phase {
			return true
		}
	}
	return false
}

// PhaseSequence collapses the snapshots into the ordered list of phases entered.
func PhaseSequence(snaps []Snapshot) []Phase {
	var out []Phase
	for _, s := range snaps {
		if s.Reason != ReasonPhase {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == s.Phase {
			continue
		}
		out = append(out, s.Phase)
	}
	return out
}
