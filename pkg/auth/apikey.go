package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// KeyPrefix starts every generated key.
const KeyPrefix = "ffg_"

var (
	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrAPIKeyRevoked  = errors.New("API key has been revoked")
	ErrAPIKeyExpired  = errors.New("API key has expired")
	ErrAPIKeyNotFound = errors.New("API key not found")
)

// APIKey describes a key. The secret itself is only returned once, by
// Generate; the manager keeps its digest.
type APIKey struct {
	ID        string     `json:"id"`
	Key       string     `json:"key,omitempty"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
}

type storedKey struct {
	APIKey
	digest [32]byte
}

// APIKeyManager holds API keys indexed by digest
type APIKeyManager struct {
	mu   sync.RWMutex
	keys map[string]*storedKey // id -> key
	now  func() time.Time
}

// NewAPIKeyManager creates an empty manager
func NewAPIKeyManager() *APIKeyManager {
	return &APIKeyManager{
		keys: make(map[string]*storedKey),
		now:  time.Now,
	}
}

func digestKey(key string) [32]byte {
	return blake2b.Sum256([]byte(key))
}

// keyID is a short stable identifier derived from the digest, safe to log.
func keyID(d [32]byte) string {
	return hex.EncodeToString(d[:6])
}

// Generate creates a random key for userID
func (m *APIKeyManager) Generate(userID, name string, expiresAt *time.Time) (*APIKey, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	key := KeyPrefix + base64.RawURLEncoding.EncodeToString(raw)

	k, err := m.Register(key, userID, name, expiresAt)
	if err != nil {
		return nil, err
	}
	k.Key = key
	return k, nil
}

// Register adds an externally provisioned key, typically from the
// configuration file.
func (m *APIKeyManager) Register(key, userID, name string, expiresAt *time.Time) (*APIKey, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidAPIKey)
	}
	if userID == "" {
		return nil, fmt.Errorf("API key %q: user id is required", name)
	}

	d := digestKey(key)
	sk := &storedKey{
		APIKey: APIKey{
			ID:        keyID(d),
			UserID:    userID,
			Name:      name,
			CreatedAt: m.now(),
			ExpiresAt: expiresAt,
		},
		digest: d,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[sk.ID]; exists {
		return nil, fmt.Errorf("API key %q already registered", name)
	}
	m.keys[sk.ID] = sk

	out := sk.APIKey
	return &out, nil
}

// Verify checks key and returns its metadata
func (m *APIKeyManager) Verify(key string) (*APIKey, error) {
	d := digestKey(key)

	m.mu.RLock()
	sk, exists := m.keys[keyID(d)]
	m.mu.RUnlock()

	if !exists || subtle.ConstantTimeCompare(sk.digest[:], d[:]) != 1 {
		return nil, ErrInvalidAPIKey
	}
	if sk.Revoked {
		return nil, ErrAPIKeyRevoked
	}
	if sk.ExpiresAt != nil && m.now().After(*sk.ExpiresAt) {
		return nil, ErrAPIKeyExpired
	}

	out := sk.APIKey
	return &out, nil
}

// Revoke marks the key with the given id as revoked
func (m *APIKeyManager) Revoke(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sk, exists := m.keys[id]
	if !exists {
		return ErrAPIKeyNotFound
	}
	sk.Revoked = true
	return nil
}

// Delete removes the key with the given id
func (m *APIKeyManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.keys[id]; !exists {
		return ErrAPIKeyNotFound
	}
	delete(m.keys, id)
	return nil
}

// List returns the keys of a user, oldest first
func (m *APIKeyManager) List(userID string) []*APIKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []*APIKey
	for _, sk := range m.keys {
		if sk.UserID == userID {
			k := sk.APIKey
			keys = append(keys, &k)
		}
	}
	slices.SortFunc(keys, func(a, b *APIKey) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return keys
}

// Count returns the number of keys not revoked
func (m *APIKeyManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sk := range m.keys {
		if !sk.Revoked {
			count++
		}
	}
	return count
}
