package session

import (
	"context"

	"sealchat/go-core/pkg/models"
)

// IdentityStore is the remote identity collection. The core only ever holds
// read-only copies of what it returns.
type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (models.Identity, bool, error)
	FindByNormalizedName(ctx context.Context, name string) (models.Identity, bool, error)
	Save(ctx context.Context, identity models.Identity) error
}

// VaultStore persists opaque vault records, one per identity, plus the
// recovery copy written at signup.
type VaultStore interface {
	Read(ctx context.Context, identityID string) (models.VaultRecord, bool, error)
	Write(ctx context.Context, identityID string, rec models.VaultRecord) error
	ReadRecovery(ctx context.Context, identityID string) (models.VaultRecord, bool, error)
	WriteRecovery(ctx context.Context, identityID string, rec models.VaultRecord) error
}

// ConversationStore carries the pending key-encapsulation payload attached to
// each conversation.
//
// OnPendingKeyExchange registers a watcher for payloads addressed to
// recipientID. Implementations must invoke the callback on its own goroutine,
// never synchronously from SetPendingKeyExchange or from the registration
// call itself, and should replay a payload that is already pending at
// registration time. The returned cancel releases the watcher and is safe to
// call more than once.
type ConversationStore interface {
	SetPendingKeyExchange(ctx context.Context, chatID string, p models.PendingKeyExchange) error
	ClearPendingKeyExchange(ctx context.Context, chatID string) error
	OnPendingKeyExchange(recipientID string, fn func(chatID string, p models.PendingKeyExchange)) (cancel func(), err error)
}

// CredentialProvider is the external identity provider. The core treats "is
// this credential valid" as an opaque call and never inspects tokens.
type CredentialProvider interface {
	SignIn(ctx context.Context, email, password string) (token string, err error)
	SignUp(ctx context.Context, email, password string) (token string, err error)
	Reauthenticate(ctx context.Context, token, password string) error
	UpdatePassword(ctx context.Context, token, newPassword string) error
	SignOut(ctx context.Context, token string) error
}

// Presence is the heartbeat registration held for the lifetime of an active
// session. The release handle is invoked on every exit path.
type Presence interface {
	Register(ctx context.Context, identityID string) (release func(), err error)
}
