package metadata

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/abcfe/abcfe-metadata/common/utils"
	prt "github.com/abcfe/abcfe-metadata/protocol"
)

// memStore is an in-memory NetworkClient that enforces the store's chaining
// rule: a PUT must reference the magic hash currently held at the address.
type memStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	gets    int
	puts    []*RemotePayload

	// putHook runs before the n-th counted PUT is applied; an error aborts it
	putHook func(n int, address string, body *RemotePayload) error
}

type memEntry struct {
	payload RemotePayload
	magic   prt.MagicHash
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*memEntry)}
}

func (m *memStore) Get(ctx context.Context, address string) (*RemotePayload, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()
	return m.get(address)
}

func (m *memStore) Put(ctx context.Context, address string, body *RemotePayload) (*Ack, error) {
	m.mu.Lock()
	copied := *body
	m.puts = append(m.puts, &copied)
	n := len(m.puts)
	hook := m.putHook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(n, address, body); err != nil {
			return nil, err
		}
	}
	return m.apply(address, body)
}

func (m *memStore) get(address string) (*RemotePayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[address]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", address, ErrNotFound)
	}
	p := e.payload
	return &p, nil
}

func (m *memStore) apply(address string, body *RemotePayload) (*Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, magic, err := VerifyPayload(address, body)
	if err != nil {
		return nil, fmt.Errorf("bad request: %w", err)
	}
	_, _, prev, err := body.Decode()
	if err != nil {
		return nil, fmt.Errorf("bad request: %w", err)
	}

	cur, ok := m.entries[address]
	if (!ok && prev != nil) || (ok && !bytes.Equal(prev, cur.magic[:])) {
		return nil, fmt.Errorf("put %s: %w", address, ErrNotFound)
	}

	m.entries[address] = &memEntry{payload: *body, magic: magic}
	return &Ack{MagicHash: utils.MagicHashToString(magic)}, nil
}

func (m *memStore) magicAt(address string) (prt.MagicHash, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[address]
	if !ok {
		return prt.MagicHash{}, false
	}
	return e.magic, true
}

func (m *memStore) counts() (gets, puts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets, len(m.puts)
}

func (m *memStore) lastPut() *RemotePayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.puts) == 0 {
		return nil
	}
	return m.puts[len(m.puts)-1]
}

// direct reaches the same entries without counting or hooks, standing in for
// another device writing to the store
type direct struct{ m *memStore }

func (d direct) Get(ctx context.Context, address string) (*RemotePayload, error) {
	return d.m.get(address)
}

func (d direct) Put(ctx context.Context, address string, body *RemotePayload) (*Ack, error) {
	return d.m.apply(address, body)
}

// stateLog records observer transitions
type stateLog struct {
	mu     sync.Mutex
	states []SaveState
}

func (l *stateLog) observe(_ prt.EntryType, s SaveState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) last() SaveState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.states) == 0 {
		return StateIdle
	}
	return l.states[len(l.states)-1]
}

func (l *stateLog) count(s SaveState) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, st := range l.states {
		if st == s {
			n++
		}
	}
	return n
}
