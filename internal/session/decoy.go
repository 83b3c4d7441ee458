package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mr-tron/base58/base58"

	"sealchat/go-core/pkg/models"
)

// Decoy chats shown after a duress login. The content is generated, the
// shape matches a real session: a stable identity id and a short
// conversation list that stays consistent for the lifetime of the decoy.
var decoyChatTitles = []string{"Family", "Book club", "Weekend plans"}

type decoySession struct {
	identity      models.Identity
	conversations []models.Conversation
}

func newDecoySession(email string, now time.Time) (*decoySession, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("decoy seed: %w", err)
	}

	identity := models.Identity{
		ID:        "sc1" + base58.Encode(seed[:]),
		Email:     email,
		CreatedAt: now.AddDate(0, -6, 0),
	}

	conversations := make([]models.Conversation, 0, len(decoyChatTitles))
	for i, title := range decoyChatTitles {
		sum := sha256.Sum256(append(seed[:], byte(i)))
		conversations = append(conversations, models.Conversation{
			ID:        "chat_" + hex.EncodeToString(sum[:8]),
			Title:     title,
			CreatedAt: now.AddDate(0, 0, -7*(i+1)),
		})
	}
	return &decoySession{identity: identity, conversations: conversations}, nil
}
