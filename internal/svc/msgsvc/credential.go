package msgsvc

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/pigeonmsg/pigeond/internal/domain"
)

const (
	saltLength = 16
	hashLength = 32
	minCost    = 4
	maxCost    = 31
)

// CredentialConfig contains configuration parameters for credential hashing.
// The salt and cost are shared by every identity; per-user salts would change
// the persisted credential format, so the shared salt is kept even though it
// is a known weakness of the source system.
type CredentialConfig struct {
	// Enabled selects the credentialed variant; when false, identities are
	// bare and verification degenerates to a presence check
	Enabled bool `env:"ENABLED" default:"true"`

	// Salt is the shared hashing salt, exactly 16 bytes
	Salt string `env:"SALT" default:"Hello, world!!!!"`

	// Cost is the log2 iteration count for hashing, in the range 4..31
	Cost int `env:"COST" default:"12"`
}

// HashPassword derives the stored credential for a password using
// PBKDF2-SHA256 with the configured shared salt and cost. The derivation is
// deterministic for a given (password, salt, cost), so repeated registration
// attempts produce identical hashes. Invalid salt or cost is an
// infrastructure error, not an authentication failure.
func HashPassword(password string, cfg CredentialConfig) ([]byte, error) {
	if len(cfg.Salt) != saltLength {
		return nil, fmt.Errorf("%w: got %d bytes", domain.ErrBadSalt, len(cfg.Salt))
	}

	if cfg.Cost < minCost || cfg.Cost > maxCost {
		return nil, fmt.Errorf("%w: %d", domain.ErrBadCost, cfg.Cost)
	}

	return pbkdf2.Key([]byte(password), []byte(cfg.Salt), 1<<cfg.Cost, hashLength, sha256.New), nil
}
