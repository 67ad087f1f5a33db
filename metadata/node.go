package metadata

import (
	"fmt"

	"github.com/abcfe/abcfe-metadata/common/crypto"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// Hardened BIP32 purpose index of the metadata subtree (m/510742')
const MetadataPurpose uint32 = 510742

// Child indexes below a type node
const (
	signingChild    uint32 = 0
	encryptionChild uint32 = 1
)

// DeriveNode derives the node for t from the master seed:
//
//	type node  T = m/510742'/typeId'   (root entry: T = m/510742')
//	signing    S = T/0'                address = P2PKH(S.pub)
//	encryption k = SHA256(priv(T/1'))
func DeriveNode(seed []byte, t prt.EntryType) (*Node, error) {
	purpose, err := derivePurposeKey(seed)
	if err != nil {
		return nil, newError(KindDerivation, "derive", t, err)
	}
	defer purpose.Zero()

	return deriveFromPurpose(purpose, t)
}

// DeriveNodeFromPurposeKey derives the node for t from a serialized m/510742' key
func DeriveNodeFromPurposeKey(xprv string, t prt.EntryType) (*Node, error) {
	purpose, err := crypto.ParseExtendedKey(xprv)
	if err != nil {
		return nil, newError(KindDerivation, "derive", t, err)
	}
	defer purpose.Zero()

	return deriveFromPurpose(purpose, t)
}

// PurposeKey serializes m/510742' for storage in the root entry
func PurposeKey(seed []byte) (string, error) {
	purpose, err := derivePurposeKey(seed)
	if err != nil {
		return "", newError(KindDerivation, "derive", prt.EntryTypeRoot, err)
	}
	defer purpose.Zero()

	return purpose.String(), nil
}

func derivePurposeKey(seed []byte) (*hdkeychain.ExtendedKey, error) {
	master, err := crypto.DeriveMasterKey(seed)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	return crypto.DeriveHardened(master, MetadataPurpose)
}

func deriveFromPurpose(purpose *hdkeychain.ExtendedKey, t prt.EntryType) (*Node, error) {
	if !t.Valid() {
		return nil, newError(KindDerivation, "derive", t, fmt.Errorf("unknown entry type %d", int32(t)))
	}

	typeNode := purpose
	if t != prt.EntryTypeRoot {
		derived, err := crypto.DeriveHardened(purpose, uint32(t))
		if err != nil {
			return nil, newError(KindDerivation, "derive", t, err)
		}
		defer derived.Zero()
		typeNode = derived
	}

	signNode, err := crypto.DeriveHardened(typeNode, signingChild)
	if err != nil {
		return nil, newError(KindDerivation, "derive", t, err)
	}
	defer signNode.Zero()

	encNode, err := crypto.DeriveHardened(typeNode, encryptionChild)
	if err != nil {
		return nil, newError(KindDerivation, "derive", t, err)
	}
	defer encNode.Zero()

	signKey, err := crypto.PrivateKey(signNode)
	if err != nil {
		return nil, newError(KindDerivation, "derive", t, err)
	}

	encPriv, err := crypto.PrivateKey(encNode)
	if err != nil {
		signKey.Zero()
		return nil, newError(KindDerivation, "derive", t, err)
	}
	encKey := crypto.DeriveSymmetricKey(encPriv)
	encPriv.Zero()

	address, err := crypto.PublicKeyToAddress(signKey.PubKey())
	if err != nil {
		signKey.Zero()
		clear(encKey)
		return nil, newError(KindDerivation, "derive", t, err)
	}

	return &Node{
		Address:       address,
		Type:          t,
		EncryptionKey: encKey,
		SigningKey:    signKey,
	}, nil
}
