// Package session coordinates authentication, duress detection and the vault
// lifecycle. It is the only component other subsystems talk to; every
// transition runs under one mutex.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sealchat/go-core/internal/kem"
	"sealchat/go-core/internal/platform/metrics"
	"sealchat/go-core/internal/platform/ratelimiter"
	"sealchat/go-core/internal/securestore"
	"sealchat/go-core/internal/vault"
	"sealchat/go-core/pkg/models"
)

// Deps wires the service to its collaborators. Identities, Vaults,
// Conversations and Credentials are required; the rest default to inert
// implementations.
type Deps struct {
	Identities    IdentityStore
	Vaults        VaultStore
	Conversations ConversationStore
	Credentials   CredentialProvider
	Presence      Presence

	Logger        *slog.Logger
	Metrics       *metrics.Collector
	LoginLimiter  *ratelimiter.LoginLimiter
	KDFIterations int
	Now           func() time.Time
}

type Service struct {
	identities    IdentityStore
	vaults        VaultStore
	conversations ConversationStore
	credentials   CredentialProvider
	presence      Presence

	log           *slog.Logger
	metrics       *metrics.Collector
	limiter       *ratelimiter.LoginLimiter
	kdfIterations int
	now           func() time.Time

	mu       sync.Mutex
	state    State
	identity models.Identity
	unlocked *vault.Unlocked
	token    string
	decoy    *decoySession
	consumed map[string]string
	releases []func()
}

func New(d Deps) (*Service, error) {
	if d.Identities == nil || d.Vaults == nil || d.Conversations == nil || d.Credentials == nil {
		return nil, errors.New("session: identity, vault, conversation and credential collaborators are required")
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.KDFIterations <= 0 {
		d.KDFIterations = securestore.DefaultKDFIterations
	}
	return &Service{
		identities:    d.Identities,
		vaults:        d.Vaults,
		conversations: d.Conversations,
		credentials:   d.Credentials,
		presence:      d.Presence,
		log:           d.Logger,
		metrics:       d.Metrics,
		limiter:       d.LoginLimiter,
		kdfIterations: d.KDFIterations,
		now:           d.Now,
		state:         StateUnauthenticated,
	}, nil
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the session's identity: the real one when unlocked, the
// synthetic one in decoy mode.
func (s *Service) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateVaultUnlocked, StateVaultLocked:
		return s.identity.Clone(), true
	case StateDecoyActive:
		return s.decoy.identity.Clone(), true
	default:
		return models.Identity{}, false
	}
}

// Conversations lists the chats visible to this session. In decoy mode this
// is the synthetic list; when unlocked it is derived from the shared-secret
// map, so every entry corresponds to a completed handshake.
func (s *Service) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateDecoyActive:
		return append([]models.Conversation(nil), s.decoy.conversations...)
	case StateVaultUnlocked:
		ids := s.unlocked.ChatIDs()
		out := make([]models.Conversation, 0, len(ids))
		for _, id := range ids {
			out = append(out, models.Conversation{ID: id})
		}
		return out
	default:
		return nil
	}
}

// SignUp registers a new account: a fresh ML-KEM key pair, an empty vault
// sealed under the password-derived master key, a recovery kit, and the
// external credential. The session stays unauthenticated; callers log in
// afterwards. The returned kit holds the only copy of the recovery mnemonic.
func (s *Service) SignUp(ctx context.Context, email, password string) (models.Identity, vault.RecoveryKit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUnauthenticated {
		return models.Identity{}, vault.RecoveryKit{}, ErrSessionActive
	}
	email = models.NormalizeEmail(email)

	if _, exists, err := s.identities.FindByEmail(ctx, email); err != nil {
		return models.Identity{}, vault.RecoveryKit{}, fmt.Errorf("identity lookup: %w", err)
	} else if exists {
		return models.Identity{}, vault.RecoveryKit{}, ErrAccountExists
	}

	publicKey, privateKey, err := kem.GenerateKeyPair()
	if err != nil {
		return models.Identity{}, vault.RecoveryKit{}, err
	}
	defer securestore.ZeroBytes(privateKey)

	id, err := kem.BuildIdentityID(publicKey)
	if err != nil {
		return models.Identity{}, vault.RecoveryKit{}, err
	}

	salt := securestore.SaltForIdentity(email)
	masterKey := securestore.DeriveMasterKey(password, salt, s.kdfIterations)
	defer securestore.ZeroBytes(masterKey)

	rec, err := vault.Seal(masterKey, privateKey, nil)
	if err != nil {
		return models.Identity{}, vault.RecoveryKit{}, err
	}
	kit, err := vault.NewRecoveryKit(privateKey, nil)
	if err != nil {
		return models.Identity{}, vault.RecoveryKit{}, err
	}

	token, err := s.credentials.SignUp(ctx, email, password)
	if err != nil {
		return models.Identity{}, vault.RecoveryKit{}, fmt.Errorf("credential signup: %w", err)
	}

	identity := models.Identity{
		ID:           id,
		Email:        email,
		KemPublicKey: publicKey,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.identities.Save(ctx, identity); err != nil {
		return models.Identity{}, vault.RecoveryKit{}, fmt.Errorf("save identity: %w", err)
	}
	if err := s.vaults.Write(ctx, id, rec); err != nil {
		return models.Identity{}, vault.RecoveryKit{}, fmt.Errorf("persist vault record: %w", err)
	}
	if err := s.vaults.WriteRecovery(ctx, id, kit.Record); err != nil {
		return models.Identity{}, vault.RecoveryKit{}, fmt.Errorf("persist recovery record: %w", err)
	}

	if err := s.credentials.SignOut(ctx, token); err != nil {
		s.log.Warn("signup token invalidation failed", "identity_id", id)
	}
	s.log.Info("account created", "identity_id", id, "email", email)
	return identity, kit, nil
}

// Login authenticates and unlocks the vault, or silently enters decoy mode
// when the password matches the account's duress hash. Every failure
// collapses into ErrInvalidCredentials after a forced lock.
func (s *Service) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUnauthenticated {
		return ErrSessionActive
	}
	email = models.NormalizeEmail(email)
	if !s.limiter.Allow(email, s.now()) {
		return ErrRateLimited
	}
	s.metrics.AuthAttempt()
	s.state = StateDuressCheck

	identity, found, lookupErr := s.identities.FindByEmail(ctx, email)

	// The duress comparator is derived unconditionally so both branches pay
	// the same KDF cost before any decision becomes observable.
	salt := securestore.SaltForIdentity(email)
	candidate := securestore.DuressHash(password, salt, s.kdfIterations)
	isDuress := lookupErr == nil && found &&
		len(identity.DuressHash) > 0 &&
		hmac.Equal(candidate, identity.DuressHash)
	securestore.ZeroBytes(candidate)

	if isDuress {
		return s.enterDecoyLocked(ctx, email)
	}
	if lookupErr != nil || !found {
		return s.failLoginLocked()
	}

	s.state = StateAuthenticating
	token, err := s.credentials.SignIn(ctx, email, password)
	if err != nil {
		return s.failLoginLocked()
	}
	rec, ok, err := s.vaults.Read(ctx, identity.ID)
	if err != nil || !ok {
		return s.failLoginLocked()
	}
	unlocked, err := vault.Unlock(password, email, s.kdfIterations, rec)
	if err != nil {
		return s.failLoginLocked()
	}

	s.identity = identity.Clone()
	s.token = token
	s.unlocked = unlocked
	s.consumed = make(map[string]string)
	s.state = StateVaultUnlocked
	s.metrics.VaultUnlock()
	s.acquireSessionResourcesLocked(ctx)
	s.log.Info("session unlocked", "identity_id", s.identity.ID)
	return nil
}

func (s *Service) failLoginLocked() error {
	// Forced lock on every failure path; decrypt failures are definitive and
	// must not be retried by callers.
	s.unlocked.Lock()
	s.unlocked = nil
	s.token = ""
	s.identity = models.Identity{}
	s.state = StateUnauthenticated
	s.metrics.AuthFailure()
	s.log.Info("login failed")
	return ErrInvalidCredentials
}

func (s *Service) enterDecoyLocked(ctx context.Context, email string) error {
	decoy, err := newDecoySession(email, s.now())
	if err != nil {
		return s.failLoginLocked()
	}
	s.decoy = decoy
	s.state = StateDecoyActive
	s.metrics.VaultUnlock()
	if s.presence != nil {
		if release, err := s.presence.Register(ctx, decoy.identity.ID); err == nil {
			s.releases = append(s.releases, release)
		}
	}
	s.log.Info("session unlocked", "identity_id", decoy.identity.ID)
	return nil
}

// Logout tears the session down. From decoy mode this is a pure in-memory
// reset; no external sign-out happens because no real session exists.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateVaultUnlocked, StateVaultLocked:
		s.releaseSessionResourcesLocked()
		s.unlocked.Lock()
		s.unlocked = nil
		token := s.token
		s.token = ""
		s.identity = models.Identity{}
		s.consumed = nil
		s.state = StateUnauthenticated
		s.log.Info("session closed")
		if token != "" {
			if err := s.credentials.SignOut(ctx, token); err != nil {
				return fmt.Errorf("invalidate external session: %w", err)
			}
		}
		return nil
	case StateDecoyActive:
		s.releaseSessionResourcesLocked()
		s.decoy = nil
		s.state = StateUnauthenticated
		s.log.Info("session closed")
		return nil
	default:
		s.state = StateUnauthenticated
		return nil
	}
}

// ChangePassword re-encrypts the vault under a new master key, then updates
// the external credential. The in-memory vault is swapped only after both
// succeed; any failure surfaces as ErrRotationFailed with the old key intact.
func (s *Service) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlockedLocked(); err != nil {
		return err
	}
	if err := s.credentials.Reauthenticate(ctx, s.token, oldPassword); err != nil {
		s.metrics.RotationFailure()
		return fmt.Errorf("%w: reauthentication rejected", ErrRotationFailed)
	}
	next, rec, err := s.unlocked.Rotate(oldPassword, newPassword, s.identity.Email, s.kdfIterations)
	if err != nil {
		s.metrics.RotationFailure()
		return fmt.Errorf("%w: %v", ErrRotationFailed, err)
	}
	if err := s.vaults.Write(ctx, s.identity.ID, rec); err != nil {
		next.Lock()
		s.metrics.RotationFailure()
		return fmt.Errorf("%w: persist record: %v", ErrRotationFailed, err)
	}
	if err := s.credentials.UpdatePassword(ctx, s.token, newPassword); err != nil {
		// The new record is already persisted; without a compensating write
		// the stored vault now disagrees with the external credential.
		next.Lock()
		s.metrics.RotationFailure()
		s.log.Warn("credential update failed after record rewrite; vault and credential disagree",
			"identity_id", s.identity.ID)
		return fmt.Errorf("%w: credential update: %v", ErrRotationFailed, err)
	}
	old := s.unlocked
	s.unlocked = next
	old.Lock()
	s.metrics.Rotation()
	s.log.Info("password rotated", "identity_id", s.identity.ID)
	return nil
}

// SetDuressPassword stores the duress comparator on the identity. It can be
// set exactly once and never rotated.
func (s *Service) SetDuressPassword(ctx context.Context, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlockedLocked(); err != nil {
		return err
	}
	if len(s.identity.DuressHash) > 0 {
		return ErrDuressAlreadySet
	}
	salt := securestore.SaltForIdentity(s.identity.Email)
	updated := s.identity.Clone()
	updated.DuressHash = securestore.DuressHash(password, salt, s.kdfIterations)
	if err := s.identities.Save(ctx, updated); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	s.identity = updated
	return nil
}

// GetChatKey returns the symmetric message key for chatID, imported from the
// stored shared secret.
func (s *Service) GetChatKey(chatID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlockedLocked(); err != nil {
		return nil, err
	}
	secret, ok := s.unlocked.Secret(chatID)
	if !ok {
		return nil, ErrNoChatKey
	}
	defer securestore.ZeroBytes(secret)
	return kem.ImportSecret(secret)
}

// EncapAndSaveKey runs the initiator side of the handshake for chatID:
// encapsulate against the peer's public key, persist the secret in this
// vault, then publish the ciphertext for the peer to consume.
func (s *Service) EncapAndSaveKey(ctx context.Context, chatID string, peer models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlockedLocked(); err != nil {
		return err
	}
	secret, ciphertext, err := kem.Encapsulate(peer.KemPublicKey)
	if err != nil {
		return err
	}
	defer securestore.ZeroBytes(secret)

	next, rec, err := s.unlocked.UpdateSecret(chatID, secret)
	if err != nil {
		return err
	}
	if err := s.vaults.Write(ctx, s.identity.ID, rec); err != nil {
		next.Lock()
		return fmt.Errorf("persist vault record: %w", err)
	}
	old := s.unlocked
	s.unlocked = next
	old.Lock()
	s.metrics.SecretUpdate()

	payload := models.PendingKeyExchange{RecipientID: peer.ID, Ciphertext: ciphertext}
	if err := s.conversations.SetPendingKeyExchange(ctx, chatID, payload); err != nil {
		// Secret is saved; a retried EncapAndSaveKey overwrites it.
		return fmt.Errorf("publish key exchange: %w", err)
	}
	s.metrics.HandshakeInitiated()
	s.log.Info("key exchange published", "chat_id", chatID, "recipient_id", peer.ID)
	return nil
}

// DecapAndSaveKey runs the recipient side: decapsulate the pending payload,
// persist the secret, then clear the payload. Processing is idempotent — an
// empty payload, a payload addressed elsewhere, or one already consumed for
// this chat is a no-op, not an error.
func (s *Service) DecapAndSaveKey(ctx context.Context, chatID string, payload models.PendingKeyExchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireUnlockedLocked(); err != nil {
		return err
	}
	if payload.IsZero() || len(payload.Ciphertext) == 0 {
		return nil
	}
	if payload.RecipientID != s.identity.ID {
		return nil
	}
	digest := ciphertextDigest(payload.Ciphertext)
	if s.consumed[chatID] == digest {
		// Already processed; the earlier clear may not have landed.
		if err := s.conversations.ClearPendingKeyExchange(ctx, chatID); err != nil {
			s.log.Warn("pending key exchange clear failed", "chat_id", chatID)
		}
		return nil
	}

	privateKey, err := s.unlocked.PrivateKey()
	if err != nil {
		return err
	}
	secret, err := kem.Decapsulate(privateKey, payload.Ciphertext)
	securestore.ZeroBytes(privateKey)
	if err != nil {
		return err
	}
	defer securestore.ZeroBytes(secret)

	next, rec, err := s.unlocked.UpdateSecret(chatID, secret)
	if err != nil {
		return err
	}
	if err := s.vaults.Write(ctx, s.identity.ID, rec); err != nil {
		next.Lock()
		return fmt.Errorf("persist vault record: %w", err)
	}
	old := s.unlocked
	s.unlocked = next
	old.Lock()
	s.consumed[chatID] = digest
	s.metrics.SecretUpdate()
	s.metrics.HandshakeCompleted()

	if err := s.conversations.ClearPendingKeyExchange(ctx, chatID); err != nil {
		// The consumed digest guards against reprocessing until the clear
		// eventually lands.
		s.log.Warn("pending key exchange clear failed", "chat_id", chatID)
	}
	s.log.Info("key exchange completed", "chat_id", chatID)
	return nil
}

// RecoverVault reseals the vault under newPassword using the recovery
// mnemonic from signup. The external credential must already have been reset
// to newPassword through the identity provider's own flow; this only brings
// the stored vault record back in line with it.
func (s *Service) RecoverVault(ctx context.Context, email, mnemonic, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUnauthenticated {
		return ErrSessionActive
	}
	email = models.NormalizeEmail(email)
	identity, found, err := s.identities.FindByEmail(ctx, email)
	if err != nil || !found {
		return ErrRecoveryFailed
	}
	rec, ok, err := s.vaults.ReadRecovery(ctx, identity.ID)
	if err != nil || !ok {
		return ErrRecoveryFailed
	}
	restored, err := vault.UnlockWithRecovery(mnemonic, rec)
	if err != nil {
		return ErrRecoveryFailed
	}
	defer restored.Lock()

	newRec, err := restored.Reseal(newPassword, email, s.kdfIterations)
	if err != nil {
		return ErrRecoveryFailed
	}
	if err := s.vaults.Write(ctx, identity.ID, newRec); err != nil {
		return fmt.Errorf("persist recovered record: %w", err)
	}
	s.log.Info("vault recovered", "identity_id", identity.ID)
	return nil
}

func (s *Service) requireUnlockedLocked() error {
	switch s.state {
	case StateVaultUnlocked:
		return nil
	case StateDecoyActive:
		return ErrDecoyRestricted
	default:
		return ErrVaultLocked
	}
}

func (s *Service) acquireSessionResourcesLocked(ctx context.Context) {
	cancel, err := s.conversations.OnPendingKeyExchange(s.identity.ID, func(chatID string, p models.PendingKeyExchange) {
		if err := s.DecapAndSaveKey(context.Background(), chatID, p); err != nil {
			s.log.Warn("pending key exchange processing failed", "chat_id", chatID)
		}
	})
	if err != nil {
		s.log.Warn("key exchange subscription failed", "identity_id", s.identity.ID)
	} else {
		s.releases = append(s.releases, cancel)
	}
	if s.presence != nil {
		release, err := s.presence.Register(ctx, s.identity.ID)
		if err != nil {
			s.log.Warn("presence registration failed", "identity_id", s.identity.ID)
		} else {
			s.releases = append(s.releases, release)
		}
	}
}

func (s *Service) releaseSessionResourcesLocked() {
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
	s.releases = nil
}

func ciphertextDigest(ciphertext []byte) string {
	sum := sha256.Sum256(ciphertext)
	return hex.EncodeToString(sum[:])
}
