package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// private key 1 has a well known compressed P2PKH address
func TestPublicKeyToAddress(t *testing.T) {
	keyBytes := make([]byte, 32)
	keyBytes[31] = 1
	priv, _ := btcec.PrivKeyFromBytes(keyBytes)

	address, err := PublicKeyToAddress(priv.PubKey())
	if err != nil {
		t.Fatalf("failed to build address: %v", err)
	}
	if address != "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH" {
		t.Fatalf("unexpected address %s", address)
	}

	if err := ValidateAddress(address); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
	if err := ValidateAddress("1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMX"); err == nil {
		t.Error("address with bad checksum accepted")
	}
	if err := ValidateAddress("3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy"); err == nil {
		t.Error("script hash address accepted")
	}
	if _, err := PublicKeyToAddress(nil); err == nil {
		t.Error("nil public key accepted")
	}
}

// 서명 후 검증
func TestSignVerifyMessage(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	address, err := PublicKeyToAddress(priv.PubKey())
	if err != nil {
		t.Fatalf("failed to build address: %v", err)
	}

	message := []byte("metadata message")
	sig, err := SignMessage(priv, message)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	ok, err := VerifyMessage(address, sig, message)
	if err != nil || !ok {
		t.Fatalf("signature did not verify: ok=%v err=%v", ok, err)
	}

	ok, _ = VerifyMessage(address, sig, []byte("other message"))
	if ok {
		t.Error("signature verified for a different message")
	}

	other, _ := btcec.NewPrivateKey()
	otherAddress, _ := PublicKeyToAddress(other.PubKey())
	ok, _ = VerifyMessage(otherAddress, sig, message)
	if ok {
		t.Error("signature verified for a different address")
	}

	if _, err := SignMessage(nil, message); err == nil {
		t.Error("nil private key accepted")
	}
}

func TestMessageHashLayout(t *testing.T) {
	hash, err := MessageHash([]byte("abc"))
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if len(hash) != 32 {
		t.Fatalf("expected 32 byte hash, got %d", len(hash))
	}

	// prefix and message are length-prefixed, so moving bytes between them changes the hash
	other, _ := MessageHash([]byte("bc"))
	if bytes.Equal(hash, other) {
		t.Error("different messages share a hash")
	}
}

func TestDeriveHardened(t *testing.T) {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	master, err := DeriveMasterKey(seed)
	if err != nil {
		t.Fatalf("failed to derive master: %v", err)
	}

	// BIP32 test vector 1, chain m/0'
	child, err := DeriveHardened(master, 0)
	if err != nil {
		t.Fatalf("failed to derive child: %v", err)
	}
	want := "xprv9uHRZZhk6KAJC1avXpDAp4MDc3sQKNxDiPvvkX8Br5ngLNv1TxvUxt4cV1rGL5hj6KCesnDYUhd7oWgT11eZG7XnxHrnYeSvkzY7d2bhkJ7"
	if child.String() != want {
		t.Fatalf("unexpected m/0': %s", child.String())
	}

	if _, err := DeriveHardened(master, hdkeychain.HardenedKeyStart); err == nil {
		t.Error("index above hardened range accepted")
	}

	parsed, err := ParseExtendedKey(child.String())
	if err != nil {
		t.Fatalf("failed to parse key: %v", err)
	}
	if parsed.String() != want {
		t.Error("parse round trip changed the key")
	}

	pub, _ := child.Neuter()
	if _, err := ParseExtendedKey(pub.String()); err == nil {
		t.Error("public extended key accepted")
	}
	if _, err := PrivateKey(pub); err == nil {
		t.Error("private key extracted from public extended key")
	}
}

func TestDeriveSymmetricKey(t *testing.T) {
	priv, _ := btcec.NewPrivateKey()
	a := DeriveSymmetricKey(priv)
	b := DeriveSymmetricKey(priv)
	if len(a) != 32 || !bytes.Equal(a, b) {
		t.Fatalf("symmetric key not deterministic 32 bytes")
	}
}
