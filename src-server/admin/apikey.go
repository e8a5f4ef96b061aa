package admin

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"evhub/src-server/apperr"

	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyPrefix    = "evh_"
	apiKeyPrefixLen = len(apiKeyPrefix) + 8
)

// APIKey is the stored half of a key. The plaintext is only returned by
// CreateAPIKey.
type APIKey struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	Prefix      string    `json:"prefix"`
	Hash        []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	Revoked     bool      `json:"revoked"`
}

func (s *Service) CreateAPIKey(name string, permissions []string) (APIKey, string, error) {
	if strings.TrimSpace(name) == "" {
		return APIKey{}, "", apperr.Validation("API key name is required")
	}
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return APIKey{}, "", fmt.Errorf("(*Service).CreateAPIKey: %w", err)
	}
	plaintext := apiKeyPrefix + hex.EncodeToString(raw)
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.bcryptCost)
	if err != nil {
		return APIKey{}, "", fmt.Errorf("(*Service).CreateAPIKey: %w", err)
	}
	if permissions == nil {
		permissions = []string{}
	}

	key := APIKey{
		ID:          s.newID(),
		Name:        name,
		Permissions: append([]string{}, permissions...),
		Prefix:      plaintext[:apiKeyPrefixLen],
		Hash:        hash,
		CreatedAt:   s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
	return key, plaintext, nil
}

// APIKeys lists every key, newest first.
func (s *Service) APIKeys() []APIKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]APIKey, 0, len(s.keys))
	for _, k := range s.keys {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// RevokeAPIKey marks a key revoked; unknown ids are ignored.
func (s *Service) RevokeAPIKey(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		k.Revoked = true
		s.keys[id] = k
	}
}

// VerifyAPIKey returns the key matching plaintext. Unknown and revoked
// keys are permission errors.
func (s *Service) VerifyAPIKey(plaintext string) (APIKey, error) {
	if len(plaintext) < apiKeyPrefixLen || !strings.HasPrefix(plaintext, apiKeyPrefix) {
		return APIKey{}, apperr.Permission("Invalid API key")
	}
	prefix := plaintext[:apiKeyPrefixLen]

	s.mu.RLock()
	candidates := make([]APIKey, 0, 1)
	for _, k := range s.keys {
		if k.Prefix == prefix {
			candidates = append(candidates, k)
		}
	}
	s.mu.RUnlock()

	for _, k := range candidates {
		if bcrypt.CompareHashAndPassword(k.Hash, []byte(plaintext)) != nil {
			continue
		}
		if k.Revoked {
			return APIKey{}, apperr.Permission("API key has been revoked")
		}
		return k, nil
	}
	return APIKey{}, apperr.Permission("Invalid API key")
}
