// Package keys stores provider API keys in the key/value store.
//
// Keys are base64-encoded before storage so they never sit in plaintext,
// but this is obfuscation only. It is reversible by anyone with access to
// the store and is NOT a security boundary.
package keys

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/abhiramiramadas/minibot/internal/store"
)

// Kind identifies a provider whose key is managed here.
type Kind string

const (
	KindGemini      Kind = "gemini"
	KindHuggingFace Kind = "huggingface"
	KindMagicAPI    Kind = "magicapi"
)

// defaultMagicAPIKey is the built-in (already encoded) fallback for the
// image-upload provider, so uploads work before the user supplies a key.
const defaultMagicAPIKey = "Y21kdjYyZHl5MDAwMWxqMDQ1N2ZhZXRzMA=="

// ErrNotSet is returned when no key has been stored for a kind.
var ErrNotSet = errors.New("api key not set")

// Store manages obfuscated provider API keys.
type Store struct {
	kv store.Storer
}

// NewStore creates a key store over the given persistence layer.
func NewStore(kv store.Storer) *Store {
	return &Store{kv: kv}
}

func storageKey(kind Kind) string {
	// The upload provider's key predates the <kind>ApiKey convention.
	if kind == KindMagicAPI {
		return "magicApiKey"
	}
	return string(kind) + "ApiKey"
}

// Save encodes and persists a raw key. The key format is not validated.
func (s *Store) Save(kind Kind, raw string) error {
	if raw == "" {
		return fmt.Errorf("keys: empty %s key", kind)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))
	if err := s.kv.Set(storageKey(kind), encoded); err != nil {
		return fmt.Errorf("keys: save %s: %w", kind, err)
	}
	return nil
}

// Get decodes and returns the stored key for kind.
//
// Absence is reported as ErrNotSet. A stored value that fails to decode is
// reported as a distinct error wrapping the decode failure, so callers can
// tell corruption apart from a key that was simply never entered.
func (s *Store) Get(kind Kind) (string, error) {
	encoded, ok, err := s.kv.Get(storageKey(kind))
	if err != nil {
		return "", fmt.Errorf("keys: get %s: %w", kind, err)
	}
	if !ok {
		if kind == KindMagicAPI {
			encoded = defaultMagicAPIKey
		} else {
			return "", fmt.Errorf("keys: %s: %w", kind, ErrNotSet)
		}
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("keys: %s key corrupted: %w", kind, err)
	}
	return string(raw), nil
}

// IsSet reports whether a user-supplied key exists for kind. The built-in
// magicapi default does not count.
func (s *Store) IsSet(kind Kind) bool {
	_, ok, err := s.kv.Get(storageKey(kind))
	return err == nil && ok
}

// Delete removes the stored key for kind.
func (s *Store) Delete(kind Kind) error {
	if err := s.kv.Delete(storageKey(kind)); err != nil {
		return fmt.Errorf("keys: delete %s: %w", kind, err)
	}
	return nil
}
