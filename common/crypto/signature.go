package crypto

import (
	"bytes"
	"fmt"

	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const messagePrefix = "Bitcoin Signed Message:\n"

// MessageHash is double-SHA256(varstr(prefix) || varstr(message))
func MessageHash(message []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarString(&buf, 0, messagePrefix); err != nil {
		return nil, fmt.Errorf("failed to write prefix: %w", err)
	}
	if err := wire.WriteVarBytes(&buf, 0, message); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	return chainhash.DoubleHashB(buf.Bytes()), nil
}

// SignMessage produces a compact recoverable signature over the message hash
func SignMessage(privateKey *btcec.PrivateKey, message []byte) (prt.Signature, error) {
	var sig prt.Signature

	if privateKey == nil {
		return sig, fmt.Errorf("private key is nil")
	}

	hash, err := MessageHash(message)
	if err != nil {
		return sig, err
	}

	signature := ecdsa.SignCompact(privateKey, hash, true)

	if len(signature) != len(sig) {
		return sig, fmt.Errorf("unexpected signature length: %d bytes", len(signature))
	}

	copy(sig[:], signature)
	return sig, nil
}

// VerifyMessage recovers the signer's key and checks it hashes to address
func VerifyMessage(address string, sig prt.Signature, message []byte) (bool, error) {
	hash, err := MessageHash(message)
	if err != nil {
		return false, err
	}

	publicKey, compressed, err := ecdsa.RecoverCompact(sig[:], hash)
	if err != nil {
		return false, nil
	}

	var pubBytes []byte
	if compressed {
		pubBytes = publicKey.SerializeCompressed()
	} else {
		pubBytes = publicKey.SerializeUncompressed()
	}

	recovered, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pubBytes), NetParams)
	if err != nil {
		return false, fmt.Errorf("failed to build address: %w", err)
	}

	return recovered.EncodeAddress() == address, nil
}
