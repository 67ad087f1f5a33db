package metadata

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/abcfe/abcfe-metadata/common/utils"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/btcsuite/btcd/btcec/v2"
)

// Node is the address/key triple securing one metadata document
type Node struct {
	Address       string
	Type          prt.EntryType
	EncryptionKey []byte
	SigningKey    *btcec.PrivateKey
}

// Zero wipes the key material; the node is unusable afterwards
func (n *Node) Zero() {
	if n == nil {
		return
	}
	clear(n.EncryptionKey)
	if n.SigningKey != nil {
		n.SigningKey.Zero()
	}
}

// RemotePayload is the wire representation stored at a node's address
type RemotePayload struct {
	Version       int    `json:"version"`
	Payload       string `json:"payload"`                   // base64 ciphertext
	Signature     string `json:"signature"`                 // base64 compact signature
	PrevMagicHash string `json:"prev_magic_hash,omitempty"` // hex, omitted on the first write
	TypeID        int32  `json:"type_id"`
}

// Ack is the store's answer to a successful PUT
type Ack struct {
	MagicHash string `json:"magic_hash,omitempty"`
}

// Decode splits the wire fields into ciphertext, signature and previous magic hash (nil when absent)
func (p *RemotePayload) Decode() ([]byte, prt.Signature, []byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(p.Payload)
	if err != nil {
		return nil, prt.Signature{}, nil, fmt.Errorf("invalid payload encoding: %w", err)
	}
	if len(ciphertext) == 0 {
		return nil, prt.Signature{}, nil, fmt.Errorf("empty payload")
	}

	sig, err := utils.Base64ToSignature(p.Signature)
	if err != nil {
		return nil, prt.Signature{}, nil, err
	}

	var prev []byte
	if p.PrevMagicHash != "" {
		hash, err := utils.StringToMagicHash(p.PrevMagicHash)
		if err != nil {
			return nil, prt.Signature{}, nil, err
		}
		prev = hash[:]
	}

	return ciphertext, sig, prev, nil
}

// NetworkClient talks to the remote blob store. Get returns an error wrapping
// ErrNotFound when nothing is stored at address; Put does the same when the
// store no longer holds the state the write was chained to.
type NetworkClient interface {
	Get(ctx context.Context, address string) (*RemotePayload, error)
	Put(ctx context.Context, address string, body *RemotePayload) (*Ack, error)
}

// SeedProvider supplies the wallet's master HD seed. Callers receive a copy
// they may wipe.
type SeedProvider interface {
	MasterSeed(ctx context.Context) ([]byte, error)
}

// SeedFunc adapts a function to SeedProvider
type SeedFunc func(ctx context.Context) ([]byte, error)

func (f SeedFunc) MasterSeed(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// StaticSeed serves a fixed seed
func StaticSeed(seed []byte) SeedProvider {
	return SeedFunc(func(context.Context) ([]byte, error) {
		out := make([]byte, len(seed))
		copy(out, seed)
		return out, nil
	})
}
