package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/abcfe/abcfe-metadata/common/logger"
	"github.com/abcfe/abcfe-metadata/common/utils"
	"github.com/abcfe/abcfe-metadata/config"
	"github.com/abcfe/abcfe-metadata/metadata"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// ErrNotFound: nothing stored at the address
	ErrNotFound = errors.New("storage: not found")
	// ErrStaleState: the write was chained to a state the store does not hold
	ErrStaleState = errors.New("storage: prior state mismatch")
)

// Entry is one stored payload with its magic hash
type Entry struct {
	Payload    *metadata.RemotePayload
	MagicHash  prt.MagicHash
	WriteCount uint64
}

// DB keeps the latest payload per address
type DB struct {
	db *leveldb.DB
	mu sync.Mutex // serializes compare-and-swap writes
}

func InitDB(cfg *config.Config) (*DB, error) {
	dbPath := filepath.Join(cfg.DB.Path, fmt.Sprintf("leveldb_%d.db", cfg.Server.RestPort))

	if err := os.MkdirAll(cfg.DB.Path, 0700); err != nil {
		log.Error("Failed to create db dir: ", err)
		return nil, err
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		log.Error("Failed to open db: ", err)
		return nil, err
	}

	log.Info("Successfully opened db: ", dbPath)
	return db, nil
}

// OpenDB opens (creating if needed) the leveldb at path
func OpenDB(path string) (*DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Get returns the stored entry for address or ErrNotFound
func (d *DB) Get(address string) (*Entry, error) {
	data, err := d.db.Get(utils.GetPayloadKey(address), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var payload metadata.RemotePayload
	if err := utils.DeserializeData(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	magicBytes, err := d.db.Get(utils.GetMagicHashKey(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read magic hash: %w", err)
	}
	magic, err := utils.BytesToMagicHash(magicBytes)
	if err != nil {
		return nil, err
	}

	countBytes, err := d.db.Get(utils.GetWriteCountKey(address), nil)
	if err != nil && err != leveldb.ErrNotFound {
		return nil, fmt.Errorf("failed to read write count: %w", err)
	}

	return &Entry{
		Payload:    &payload,
		MagicHash:  magic,
		WriteCount: utils.BytesToUint64(countBytes),
	}, nil
}

// CompareAndSwap stores payload when the current magic hash equals prev
// (prev == nil means the address must be empty). Returns ErrStaleState otherwise.
func (d *DB) CompareAndSwap(address string, prev []byte, payload *metadata.RemotePayload, magic prt.MagicHash) (*Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.Get(address)
	switch {
	case err == ErrNotFound:
		if prev != nil {
			return nil, ErrStaleState
		}
	case err != nil:
		return nil, err
	default:
		if prev == nil || string(prev) != string(current.MagicHash[:]) {
			return nil, ErrStaleState
		}
	}

	data, err := utils.SerializeData(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	count := uint64(1)
	if current != nil {
		count = current.WriteCount + 1
	}

	batch := new(leveldb.Batch)
	batch.Put(utils.GetPayloadKey(address), data)
	batch.Put(utils.GetMagicHashKey(address), magic[:])
	batch.Put(utils.GetWriteCountKey(address), utils.Uint64ToBytes(count))
	if err := d.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("failed to write payload: %w", err)
	}

	return &Entry{Payload: payload, MagicHash: magic, WriteCount: count}, nil
}

// Addresses lists every address holding a payload, in key order
func (d *DB) Addresses() ([]string, error) {
	iter := d.db.NewIterator(util.BytesPrefix([]byte(prt.PrefixMetaPayload)), nil)
	defer iter.Release()

	var addresses []string
	for iter.Next() {
		addresses = append(addresses, string(iter.Key()[len(prt.PrefixMetaPayload):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate payloads: %w", err)
	}
	return addresses, nil
}

// RawEntries calls fn for every key under the metadata prefix until fn returns false
func (d *DB) RawEntries(fn func(key, value []byte) bool) error {
	iter := d.db.NewIterator(util.BytesPrefix([]byte(prt.PrefixMeta)), nil)
	defer iter.Release()

	for iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}
