package metadata

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/abcfe/abcfe-metadata/common/crypto"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func genSeed() *rapid.Generator[[]byte] {
	return rapid.SliceOfN(rapid.Byte(), 16, 64)
}

func genEntryType() *rapid.Generator[prt.EntryType] {
	return rapid.SampledFrom(prt.EntryTypes())
}

func genDocument() *rapid.Generator[map[string]string] {
	return rapid.MapOf(rapid.StringN(1, 16, -1), rapid.String())
}

func TestDeriveNodeDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := genSeed().Draw(t, "seed")
		typ := genEntryType().Draw(t, "type")

		a, err := DeriveNode(seed, typ)
		require.NoError(t, err)
		b, err := DeriveNode(seed, typ)
		require.NoError(t, err)

		require.Equal(t, a.Address, b.Address)
		require.Equal(t, a.EncryptionKey, b.EncryptionKey)
		require.Equal(t, a.SigningKey.Serialize(), b.SigningKey.Serialize())
		require.Len(t, a.EncryptionKey, 32)
		require.NoError(t, crypto.ValidateAddress(a.Address))
	})
}

func TestDeriveNodeSeparatesTypes(t *testing.T) {
	seen := make(map[string]prt.EntryType)
	for _, typ := range prt.EntryTypes() {
		node, err := DeriveNode(testSeed, typ)
		require.NoError(t, err)
		if prev, dup := seen[node.Address]; dup {
			t.Fatalf("%s and %s share address %s", prev, typ, node.Address)
		}
		seen[node.Address] = typ
	}
}

func TestDeriveNodeMatchesPurposeKey(t *testing.T) {
	xprv, err := PurposeKey(testSeed)
	require.NoError(t, err)

	for _, typ := range prt.EntryTypes() {
		fromSeed, err := DeriveNode(testSeed, typ)
		require.NoError(t, err)
		fromKey, err := DeriveNodeFromPurposeKey(xprv, typ)
		require.NoError(t, err)
		require.Equal(t, fromSeed.Address, fromKey.Address)
		require.Equal(t, fromSeed.EncryptionKey, fromKey.EncryptionKey)
	}
}

// BIP32 test vector 1 seed; the derivation path and entry ids must never change
func TestDeriveNodeKnownVectors(t *testing.T) {
	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	xprv, err := PurposeKey(seed)
	require.NoError(t, err)
	require.Equal(t, "xprv9uHRZZhk6RqGAD8ac7qXgradjc2HghAbcWhVABkJsTbwYLcFrywbD6oozL9vYRWAJiGkHviezrx7k2JhzjQJmP7myVyYb4vp3g1nSfwouyn", xprv)

	vectors := []struct {
		typ     prt.EntryType
		address string
		encKey  string
	}{
		{prt.EntryTypeRoot, "1K5RkN5HJ9DLLqiLu5SYrqkDbUD8abiLJR", "80aa4ad0f3cd56f00b41b814c479cbe3566ecda51bb1c598c24968ea2196c7d0"},
		{prt.EntryTypeContacts, "1Bn3eN1HEVn7iF2M1Xx4zKm5uCQBREGvRC", "f189baca05fb5aa7e5ac5e6e95a63fe222d3b364d4139e1ef24e29a38022e1c0"},
		{prt.EntryTypeBitcoin, "1MxZr5p4gVXn61tP8weFQeFWVWZakBFQq6", "7f606f709e7597778acdf2ef69d276f3328c637b7a3613bc1d80f572709a15ed"},
	}
	for _, v := range vectors {
		node, err := DeriveNode(seed, v.typ)
		require.NoError(t, err, v.typ)
		require.Equal(t, v.address, node.Address, v.typ)
		require.Equal(t, v.encKey, hex.EncodeToString(node.EncryptionKey), v.typ)
		node.Zero()
	}
}

func TestDeriveNodeErrors(t *testing.T) {
	_, err := DeriveNode(testSeed, prt.EntryType(0))
	require.True(t, errors.Is(err, ErrDerivation))

	// hdkeychain accepts 16..64 byte seeds
	_, err = DeriveNode([]byte{1, 2, 3}, prt.EntryTypeBitcoin)
	require.True(t, errors.Is(err, ErrDerivation))
}

func TestNodeZero(t *testing.T) {
	node, err := DeriveNode(testSeed, prt.EntryTypeBitcoin)
	require.NoError(t, err)

	node.Zero()
	require.Equal(t, make([]byte, 32), node.EncryptionKey)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "key")
		raw, err := json.Marshal(genDocument().Draw(t, "doc"))
		require.NoError(t, err)

		doc, err := ValidateJSON(string(raw))
		require.NoError(t, err)

		ciphertext, err := Encrypt(doc, key)
		require.NoError(t, err)

		plain, err := Decrypt(ciphertext, key)
		require.NoError(t, err)
		require.Equal(t, doc, plain)
	})
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	doc, err := ValidateJSON(`{"a":1}`)
	require.NoError(t, err)

	a, err := Encrypt(doc, key)
	require.NoError(t, err)
	b, err := Encrypt(doc, key)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDecryptFailures(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	doc, err := ValidateJSON(`{"a":1}`)
	require.NoError(t, err)
	ciphertext, err := Encrypt(doc, key)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, bytes.Repeat([]byte{8}, 32))
	require.True(t, errors.Is(err, ErrDecryption))

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0x01
	_, err = Decrypt(tampered, key)
	require.True(t, errors.Is(err, ErrDecryption))

	_, err = Decrypt(ciphertext[:10], key)
	require.True(t, errors.Is(err, ErrDecryption))

	_, err = Decrypt(ciphertext, key[:16])
	require.True(t, errors.Is(err, ErrDecryption))

	_, err = Encrypt(doc, key[:16])
	require.True(t, errors.Is(err, ErrEncryption))
}

func TestValidateJSON(t *testing.T) {
	valid, err := ValidateJSON(" {\n  \"a\" : [1, 2] }\n")
	require.NoError(t, err)
	require.Equal(t, `{"a":[1,2]}`, valid.String())

	for _, doc := range []string{"", "null", "[]", "true", `{"a"}`, `{"a":1} {"b":2}`} {
		_, err := ValidateJSON(doc)
		require.True(t, errors.Is(err, ErrValidation), "doc %q", doc)
	}
}

func TestChainMessage(t *testing.T) {
	ciphertext := []byte("ciphertext")

	msg, err := ChainMessage(ciphertext, nil)
	require.NoError(t, err)
	require.Equal(t, ciphertext, msg)

	prev := bytes.Repeat([]byte{0xab}, 32)
	msg, err = ChainMessage(ciphertext, prev)
	require.NoError(t, err)
	require.Len(t, msg, 64)
	require.Equal(t, prev, msg[:32])

	_, err = ChainMessage(nil, prev)
	require.True(t, errors.Is(err, ErrChain))

	_, err = ChainMessage(ciphertext, prev[:31])
	require.True(t, errors.Is(err, ErrChain))
}

// A signature over one chain position never verifies at another
func TestChainBinding(t *testing.T) {
	node, err := DeriveNode(testSeed, prt.EntryTypeBitcoin)
	require.NoError(t, err)
	defer node.Zero()

	rapid.Check(t, func(t *rapid.T) {
		ciphertext := rapid.SliceOfN(rapid.Byte(), 1, 128).Draw(t, "ciphertext")
		prevA := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "prevA")
		prevB := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "prevB")
		if bytes.Equal(prevA, prevB) {
			t.Skip("identical prev hashes")
		}

		msgA, err := ChainMessage(ciphertext, prevA)
		require.NoError(t, err)
		sig, err := Sign(msgA, node)
		require.NoError(t, err)
		require.NoError(t, Verify(node.Address, sig, msgA))

		msgB, err := ChainMessage(ciphertext, prevB)
		require.NoError(t, err)
		require.True(t, errors.Is(Verify(node.Address, sig, msgB), ErrVerification))

		magicA, err := MagicHash(ciphertext, prevA)
		require.NoError(t, err)
		magicB, err := MagicHash(ciphertext, prevB)
		require.NoError(t, err)
		require.NotEqual(t, magicA, magicB)
	})
}

func TestVerifyWrongAddress(t *testing.T) {
	a, err := DeriveNode(testSeed, prt.EntryTypeBitcoin)
	require.NoError(t, err)
	b, err := DeriveNode(testSeed, prt.EntryTypeEthereum)
	require.NoError(t, err)

	msg := []byte("message")
	sig, err := Sign(msg, a)
	require.NoError(t, err)

	require.NoError(t, Verify(a.Address, sig, msg))
	require.True(t, errors.Is(Verify(b.Address, sig, msg), ErrVerification))

	_, err = Sign(msg, &Node{})
	require.True(t, errors.Is(err, ErrSigning))
}

// Changing the ciphertext changes the chain message and magic hash at the same position
func TestChainBindsCiphertext(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctA := rapid.SliceOfN(rapid.Byte(), 1, 128).Draw(t, "ctA")
		ctB := rapid.SliceOfN(rapid.Byte(), 1, 128).Draw(t, "ctB")
		if bytes.Equal(ctA, ctB) {
			t.Skip("identical ciphertexts")
		}
		prev := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "prev")

		for _, p := range [][]byte{nil, prev} {
			msgA, err := ChainMessage(ctA, p)
			require.NoError(t, err)
			msgB, err := ChainMessage(ctB, p)
			require.NoError(t, err)
			require.NotEqual(t, msgA, msgB)

			magicA, err := MagicHash(ctA, p)
			require.NoError(t, err)
			magicB, err := MagicHash(ctB, p)
			require.NoError(t, err)
			require.NotEqual(t, magicA, magicB)
		}
	})
}
