package session

import "errors"

var (
	// ErrInvalidCredentials is the only failure surfaced by Login. Wrong
	// password, unknown account and undecryptable vault record all collapse
	// into it so an attacker probing the duress path learns nothing.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrVaultLocked marks a vault-dependent call made while no vault is open.
	ErrVaultLocked = errors.New("vault is locked")

	// ErrDecoyRestricted marks a vault-dependent call made in decoy mode.
	ErrDecoyRestricted = errors.New("operation unavailable in this session")

	// ErrRotationFailed marks a failed password change; the previous master
	// key remains valid and the session stays unlocked.
	ErrRotationFailed = errors.New("password rotation failed")

	// ErrSessionActive rejects login or signup while a session exists.
	ErrSessionActive = errors.New("a session is already active")

	// ErrRateLimited rejects login attempts beyond the per-account budget.
	ErrRateLimited = errors.New("too many attempts, try again later")

	// ErrAccountExists rejects signup for an email that is already registered.
	ErrAccountExists = errors.New("account already exists")

	// ErrDuressAlreadySet rejects a second duress password; it is set once
	// and immutable afterwards.
	ErrDuressAlreadySet = errors.New("duress password is already set")

	// ErrNoChatKey reports a chat whose handshake has not completed here.
	ErrNoChatKey = errors.New("no key established for chat")

	// ErrRecoveryFailed marks a failed vault recovery from mnemonic.
	ErrRecoveryFailed = errors.New("vault recovery failed")
)
