package overlay

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kademlia-dht/overlay/pkg/crypto"
)

// LoadOrCreateIdentity loads the 32-byte Ed25519 seed from path, or
// generates and persists a fresh one if path does not exist (spec.md §6:
// "local private key file (32 bytes, USER_READ permission)"). Grounded on
// dep2p-go-dep2p/internal/core/identity/module.go's
// loadIdentityFromFile/saveIdentityToFile pair, adapted from PEM-encoded
// keys to a raw 32-byte seed file since that is the exact on-disk format
// spec.md names.
func LoadOrCreateIdentity(path string) (crypto.PrivateKey, error) {
	seed, err := os.ReadFile(path)
	if err == nil {
		return crypto.PrivateKeyFromSeed(seed)
	}
	if !os.IsNotExist(err) {
		return crypto.PrivateKey{}, fmt.Errorf("read identity file %s: %w", path, err)
	}

	priv, _, genErr := crypto.GenerateIdentity(nil)
	if genErr != nil {
		return crypto.PrivateKey{}, fmt.Errorf("generate identity: %w", genErr)
	}
	if dir := filepath.Dir(path); dir != "." {
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return crypto.PrivateKey{}, fmt.Errorf("create identity directory %s: %w", dir, mkErr)
		}
	}
	if writeErr := os.WriteFile(path, priv.Seed(), 0o400); writeErr != nil {
		return crypto.PrivateKey{}, fmt.Errorf("persist identity file %s: %w", path, writeErr)
	}
	return priv, nil
}
