package request

import "strings"

// Pool identifies one of the channel request pools.
type Pool int

const (
	// Observed holds requests actively monitored for completion.
	Observed Pool = iota
	// Stored holds requests retained for retry.
	Stored
	// WaitingForResponse holds sent requests expecting a reply, in submission order.
	WaitingForResponse

	poolCount = 3
)

// Pools lists pools in lookup priority order.
var Pools = []Pool{Observed, Stored, WaitingForResponse}

func (p Pool) String() string {
	switch p {
	case Observed:
		return "observed"
	case Stored:
		return "stored"
	case WaitingForResponse:
		return "waiting"
	}
	return "unknown"
}

func (p Pool) valid() bool {
	return p >= 0 && p < poolCount
}

// State is a set of pool memberships, plus the terminal Destroyed flag.
type State uint32

const (
	// Destroyed marks a request that left every pool.
	Destroyed State = 1 << 7
)

// StateOf returns the membership flag of a pool.
func StateOf(pool Pool) State {
	return 1 << uint(pool)
}

// Has reports whether all flags of other are set.
func (s State) Has(other State) bool {
	return s&other == other
}

// In reports pool membership.
func (s State) In(pool Pool) bool {
	return s.Has(StateOf(pool))
}

func (s State) String() string {
	if s == 0 {
		return "submitted"
	}
	if s.Has(Destroyed) {
		return "destroyed"
	}
	var names []string
	for _, pool := range Pools {
		if s.In(pool) {
			names = append(names, pool.String())
		}
	}
	return strings.Join(names, "|")
}
