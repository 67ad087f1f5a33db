package metadata

import (
	"errors"
	"fmt"

	"github.com/abcfe/abcfe-metadata/common/crypto"
	"github.com/abcfe/abcfe-metadata/common/utils"
	prt "github.com/abcfe/abcfe-metadata/protocol"
)

// ChainMessage is the message a write signs. Without a previous state it is
// the ciphertext itself; otherwise prev || SHA256(ciphertext).
func ChainMessage(ciphertext, prev []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, newError(KindChain, "chain", 0, errors.New("empty ciphertext"))
	}

	if len(prev) == 0 {
		msg := make([]byte, len(ciphertext))
		copy(msg, ciphertext)
		return msg, nil
	}

	if len(prev) != len(prt.MagicHash{}) {
		return nil, newError(KindChain, "chain", 0, fmt.Errorf("invalid previous magic hash length: %d", len(prev)))
	}

	msg := make([]byte, 0, len(prev)+32)
	msg = append(msg, prev...)
	msg = append(msg, utils.Sha256(ciphertext)...)
	return msg, nil
}

// MagicHash is the Bitcoin message hash of the chain message; the next write
// to the same address carries it as prev_magic_hash.
func MagicHash(ciphertext, prev []byte) (prt.MagicHash, error) {
	msg, err := ChainMessage(ciphertext, prev)
	if err != nil {
		return prt.MagicHash{}, err
	}

	hash, err := crypto.MessageHash(msg)
	if err != nil {
		return prt.MagicHash{}, newError(KindChain, "chain", 0, err)
	}

	magic, err := utils.BytesToMagicHash(hash)
	if err != nil {
		return prt.MagicHash{}, newError(KindChain, "chain", 0, err)
	}
	return magic, nil
}
