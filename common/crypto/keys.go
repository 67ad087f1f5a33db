package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// Network used for extended key serialization and addresses
var NetParams = &chaincfg.MainNetParams

// Derive master key from a BIP39 seed
func DeriveMasterKey(seed []byte) (*hdkeychain.ExtendedKey, error) {
	master, err := hdkeychain.NewMaster(seed, NetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	return master, nil
}

// DeriveHardened walks the hardened path below parent, e.g. DeriveHardened(k, 510742, 5)
// yields k/510742'/5'.
func DeriveHardened(parent *hdkeychain.ExtendedKey, path ...uint32) (*hdkeychain.ExtendedKey, error) {
	key := parent
	for _, index := range path {
		if index >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("index %d out of hardened range", index)
		}
		child, err := key.Derive(hdkeychain.HardenedKeyStart + index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d': %w", index, err)
		}
		key = child
	}
	return key, nil
}

// PrivateKey extracts the secp256k1 private key of a private extended key
func PrivateKey(key *hdkeychain.ExtendedKey) (*btcec.PrivateKey, error) {
	if !key.IsPrivate() {
		return nil, fmt.Errorf("extended key is public")
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get private key: %w", err)
	}
	return priv, nil
}

// DeriveSymmetricKey hashes a private key's scalar into a 32-byte AES key
func DeriveSymmetricKey(priv *btcec.PrivateKey) []byte {
	d := priv.Serialize()
	defer clear(d)

	sum := sha256.Sum256(d)
	return sum[:]
}

// Extended private key from its base58 form
func ParseExtendedKey(s string) (*hdkeychain.ExtendedKey, error) {
	key, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extended key: %w", err)
	}
	if !key.IsPrivate() {
		return nil, fmt.Errorf("extended key is public")
	}
	return key, nil
}
