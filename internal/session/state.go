package session

// State identifies where the single logical session is in its lifecycle.
// Transitions are serialized by the Service mutex; no two authentication
// attempts, and no attempt concurrent with a rotation or secret update, may
// interleave.
type State int

const (
	// StateUnauthenticated: no identity, no key material.
	StateUnauthenticated State = iota
	// StateDuressCheck: login in flight, duress comparison not yet decided.
	StateDuressCheck
	// StateAuthenticating: external credential check and vault unlock in flight.
	StateAuthenticating
	// StateVaultLocked: identity known but no key material held.
	StateVaultLocked
	// StateVaultUnlocked: an in-memory vault is open.
	StateVaultUnlocked
	// StateDecoyActive: decoy session; the real vault is permanently absent.
	StateDecoyActive
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateDuressCheck:
		return "duress-check"
	case StateAuthenticating:
		return "authenticating"
	case StateVaultLocked:
		return "vault-locked"
	case StateVaultUnlocked:
		return "vault-unlocked"
	case StateDecoyActive:
		return "decoy-active"
	default:
		return "unknown"
	}
}
