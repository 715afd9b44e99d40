package dataset

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/friconhq/fricon/internal/ferr"
)

// pendingWrite is what a write token resolves to: the dataset it was
// minted for.
type pendingWrite struct {
	datasetID int64
}

// tokenRegistry is the manager's pending-write registry: a process-wide
// mutable map from opaque write token to the dataset it authorizes,
// protected by a mutex held only for pointer-sized operations. Tokens are
// single-use write capabilities consumed exactly once by Write.
type tokenRegistry struct {
	mu     sync.Mutex
	tokens map[string]pendingWrite
}

func newTokenRegistry() *tokenRegistry {
	return &tokenRegistry{tokens: make(map[string]pendingWrite)}
}

// issue mints a new token for datasetID and registers it.
func (r *tokenRegistry) issue(datasetID int64) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", ferr.Wrap(ferr.CodeStorage, "generate write token", err)
	}
	token := hex.EncodeToString(raw)

	r.mu.Lock()
	r.tokens[token] = pendingWrite{datasetID: datasetID}
	r.mu.Unlock()
	return token, nil
}

// consume looks up and removes token in one step: a token is a single-use
// capability, so a second Write with the same token always sees InvalidToken.
func (r *tokenRegistry) consume(token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pw, ok := r.tokens[token]
	if !ok {
		return 0, ferr.New(ferr.CodeInvalidToken, "unknown or already-consumed write token")
	}
	delete(r.tokens, token)
	return pw.datasetID, nil
}
