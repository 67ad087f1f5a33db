package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// PublicKeyToAddress returns the base58check P2PKH address of the compressed public key
func PublicKeyToAddress(publicKey *btcec.PublicKey) (string, error) {
	if publicKey == nil {
		return "", fmt.Errorf("public key is nil")
	}

	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(publicKey.SerializeCompressed()), NetParams)
	if err != nil {
		return "", fmt.Errorf("failed to build address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// ValidateAddress checks that s is a P2PKH address on NetParams
func ValidateAddress(s string) error {
	addr, err := btcutil.DecodeAddress(s, NetParams)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if _, ok := addr.(*btcutil.AddressPubKeyHash); !ok {
		return fmt.Errorf("not a pubkey hash address: %s", s)
	}
	return nil
}
