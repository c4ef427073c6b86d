package claims

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"os"
	"path/filepath"

	"wafl/pkg/waflerr"
)

const envKeyDir = "WAFL_KEYS"

// Keystore reads and writes Ed25519 seed files on disk, one per (subject,
// key type) pair, named "<subject>_<type>.nk" and holding the 32-byte
// seed base32-encoded (spec.md §4.H keystore layout).
type Keystore struct {
	dir string
}

// NewKeystore resolves the keystore directory: WAFL_KEYS if set, otherwise
// $HOME/.wafl/keys.
func NewKeystore() (*Keystore, error) {
	dir := os.Getenv(envKeyDir)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".wafl", "keys")
	}
	return NewKeystoreAt(dir)
}

// NewKeystoreAt opens a keystore rooted at dir, bypassing WAFL_KEYS and the
// $HOME fallback entirely. Used by -keys to let an operator point
// waflrund at a keystore outside the default locations.
func NewKeystoreAt(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Keystore{dir: dir}, nil
}

func (k *Keystore) path(subject string, kt KeyType) string {
	return filepath.Join(k.dir, fmt.Sprintf("%s_%s.nk", subject, kt))
}

// Generate mints a fresh Ed25519 keypair for subject of type kt, persists
// the seed, and returns the private key.
func (k *Keystore) Generate(subject string, kt KeyType) (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	seed := priv.Seed()
	encoded := base32.StdEncoding.EncodeToString(seed)
	if err := os.WriteFile(k.path(subject, kt), []byte(encoded), 0600); err != nil {
		return nil, err
	}
	return priv, nil
}

// Load reads subject's private key of type kt back from disk.
func (k *Keystore) Load(subject string, kt KeyType) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(k.path(subject, kt))
	if err != nil {
		return nil, &waflerr.ClaimsError{Reason: fmt.Sprintf("no %s key for %s: %v", kt, subject, err)}
	}
	seed, err := base32.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, &waflerr.ClaimsError{Reason: fmt.Sprintf("corrupt key file for %s: %v", subject, err)}
	}
	if len(seed) != ed25519.SeedSize {
		return nil, &waflerr.ClaimsError{Reason: fmt.Sprintf("key file for %s has wrong seed length", subject)}
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
