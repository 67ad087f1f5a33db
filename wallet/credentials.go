package wallet

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-metadata/metadata"
	"github.com/tyler-smith/go-bip39"
)

// CredentialsSeed derives a seed from wallet login credentials. Wallets that
// predate HD seeds use it to reach the root metadata entry, which holds the
// metadata purpose key (see metadata.Service.LoadRemoteNodes).
type CredentialsSeed struct {
	GUID      string
	SharedKey string
	Password  string
}

// MasterSeed returns bip39 seed of the mnemonic built from SHA256(guid || sharedKey || password)
func (c CredentialsSeed) MasterSeed(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.GUID == "" || c.SharedKey == "" || c.Password == "" {
		return nil, errors.New("incomplete wallet credentials")
	}

	h := sha256.New()
	h.Write([]byte(c.GUID))
	h.Write([]byte(c.SharedKey))
	h.Write([]byte(c.Password))
	entropy := h.Sum(nil)
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to build credentials mnemonic: %w", err)
	}
	return bip39.NewSeed(mnemonic, ""), nil
}

var _ metadata.SeedProvider = CredentialsSeed{}
