package metadata

import (
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-metadata/common/crypto"
	prt "github.com/abcfe/abcfe-metadata/protocol"
)

// Sign signs message with the node's signing key. The signature recovers to node.Address.
func Sign(message []byte, node *Node) (prt.Signature, error) {
	if node == nil || node.SigningKey == nil {
		return prt.Signature{}, newError(KindSigning, "sign", 0, errors.New("missing signing key"))
	}

	sig, err := crypto.SignMessage(node.SigningKey, message)
	if err != nil {
		return prt.Signature{}, newError(KindSigning, "sign", node.Type, err)
	}
	return sig, nil
}

// Verify checks that sig over message was produced by the key behind address
func Verify(address string, sig prt.Signature, message []byte) error {
	ok, err := crypto.VerifyMessage(address, sig, message)
	if err != nil {
		return newError(KindVerification, "verify", 0, err)
	}
	if !ok {
		return newError(KindVerification, "verify", 0, fmt.Errorf("signature does not match address %s", address))
	}
	return nil
}

// VerifyPayload checks a stored payload's signature against its chain
// position and returns its ciphertext and magic hash.
func VerifyPayload(address string, p *RemotePayload) ([]byte, prt.MagicHash, error) {
	ciphertext, sig, prev, err := p.Decode()
	if err != nil {
		return nil, prt.MagicHash{}, newError(KindVerification, "verify", prt.EntryType(p.TypeID), err)
	}

	msg, err := ChainMessage(ciphertext, prev)
	if err != nil {
		return nil, prt.MagicHash{}, err
	}

	if err := Verify(address, sig, msg); err != nil {
		return nil, prt.MagicHash{}, err
	}

	magic, err := MagicHash(ciphertext, prev)
	if err != nil {
		return nil, prt.MagicHash{}, err
	}
	return ciphertext, magic, nil
}
