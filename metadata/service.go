package metadata

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/abcfe/abcfe-metadata/common/logger"
	"github.com/abcfe/abcfe-metadata/common/utils"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/lightningnetwork/lnd/clock"
)

// Wait before the single write retry
const DefaultRetryDelay = time.Second

// SaveState is a step of one save attempt
type SaveState int

const (
	StateIdle SaveState = iota
	StateValidating
	StateDeriving
	StateFetchingPriorState
	StateEncrypting
	StateSigning
	StatePutting
	StateSucceeded
	StateFailedTransient
	StateFailedFatal
)

func (s SaveState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateDeriving:
		return "deriving"
	case StateFetchingPriorState:
		return "fetching_prior_state"
	case StateEncrypting:
		return "encrypting"
	case StateSigning:
		return "signing"
	case StatePutting:
		return "putting"
	case StateSucceeded:
		return "succeeded"
	case StateFailedTransient:
		return "failed_transient"
	case StateFailedFatal:
		return "failed_fatal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateObserver is told about every state a save passes through
type StateObserver func(t prt.EntryType, state SaveState)

type nodeSource func(ctx context.Context, t prt.EntryType) (*Node, error)

// Service saves and loads encrypted metadata documents. It holds no locks:
// callers must not run overlapping saves for the same entry type.
type Service struct {
	seeds      SeedProvider // nil when built from a purpose key
	nodes      nodeSource
	client     NetworkClient
	clock      clock.Clock
	retryDelay time.Duration
	observer   StateObserver
}

type Option func(*Service)

// WithClock replaces the clock driving the retry wait
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

func WithStateObserver(o StateObserver) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// NewService derives nodes from the master seed served by seeds
func NewService(seeds SeedProvider, client NetworkClient, opts ...Option) *Service {
	s := newService(seedNodes(seeds), client, opts...)
	s.seeds = seeds
	return s
}

// NewServiceWithPurposeKey derives nodes from a serialized m/510742' key, as
// recovered by LoadRemoteNodes on a device that has no master seed.
func NewServiceWithPurposeKey(xprv string, client NetworkClient, opts ...Option) (*Service, error) {
	// fail early on a malformed key
	probe, err := DeriveNodeFromPurposeKey(xprv, prt.EntryTypeRoot)
	if err != nil {
		return nil, err
	}
	probe.Zero()

	nodes := func(_ context.Context, t prt.EntryType) (*Node, error) {
		return DeriveNodeFromPurposeKey(xprv, t)
	}
	return newService(nodes, client, opts...), nil
}

func newService(nodes nodeSource, client NetworkClient, opts ...Option) *Service {
	s := &Service{
		nodes:      nodes,
		client:     client,
		clock:      clock.NewDefaultClock(),
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func seedNodes(seeds SeedProvider) nodeSource {
	return func(ctx context.Context, t prt.EntryType) (*Node, error) {
		seed, err := seeds.MasterSeed(ctx)
		if err != nil {
			return nil, newError(KindSeedUnavailable, "derive", t, err)
		}
		defer clear(seed)

		return DeriveNode(seed, t)
	}
}

// Address returns the remote address documents of type t are stored under
func (s *Service) Address(ctx context.Context, t prt.EntryType) (string, error) {
	node, err := s.nodes(ctx, t)
	if err != nil {
		return "", err
	}
	defer node.Zero()

	return node.Address, nil
}

// Save validates, encrypts, signs and writes doc as the new state of type t
func (s *Service) Save(ctx context.Context, t prt.EntryType, doc string) error {
	s.transition(t, StateValidating)
	valid, err := ValidateJSON(doc)
	if err != nil {
		s.transition(t, StateFailedFatal)
		return validationError(t, err)
	}
	return s.save(ctx, t, valid)
}

// SaveValue is Save for the JSON encoding of v
func (s *Service) SaveValue(ctx context.Context, t prt.EntryType, v interface{}) error {
	s.transition(t, StateValidating)
	valid, err := MarshalDocument(v)
	if err != nil {
		s.transition(t, StateFailedFatal)
		return validationError(t, err)
	}
	return s.save(ctx, t, valid)
}

func (s *Service) save(ctx context.Context, t prt.EntryType, doc ValidJSON) error {
	s.transition(t, StateDeriving)
	node, err := s.nodes(ctx, t)
	if err != nil {
		s.transition(t, StateFailedFatal)
		return err
	}
	defer node.Zero()

	firstAssumedEmpty := false
	for attempt := 1; ; attempt++ {
		s.transition(t, StateFetchingPriorState)
		prev, found, err := s.fetchPrior(ctx, node)
		if err != nil {
			s.transition(t, StateFailedFatal)
			return err
		}

		if attempt == 1 {
			firstAssumedEmpty = !found
		} else if !found && firstAssumedEmpty {
			s.transition(t, StateFailedFatal)
			return newError(KindInconsistentState, "save", t,
				fmt.Errorf("store rejected first write to %s but still reports no prior state", node.Address))
		}

		body, err := s.buildBody(node, doc, prev)
		if err != nil {
			s.transition(t, StateFailedFatal)
			return err
		}

		s.transition(t, StatePutting)
		_, err = s.client.Put(ctx, node.Address, body)
		if err == nil {
			logger.Debug("metadata saved: type=", t, " address=", node.Address, " attempt=", attempt)
			s.transition(t, StateSucceeded)
			return nil
		}

		if !errors.Is(err, ErrNotFound) {
			s.transition(t, StateFailedFatal)
			return newError(KindNetwork, "put", t, err)
		}

		if attempt > 1 {
			s.transition(t, StateFailedFatal)
			return newError(KindConflict, "put", t, err)
		}

		s.transition(t, StateFailedTransient)
		logger.Warn("metadata put rejected, retrying once: type=", t, " address=", node.Address, " delay=", s.retryDelay)
		if err := s.wait(ctx); err != nil {
			s.transition(t, StateFailedFatal)
			return newError(KindNetwork, "put", t, err)
		}
	}
}

// fetchPrior returns the magic hash of the stored payload, or nil when none exists
func (s *Service) fetchPrior(ctx context.Context, node *Node) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, node.Address)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newError(KindNetwork, "fetch", node.Type, err)
	}

	_, magic, err := VerifyPayload(node.Address, payload)
	if err != nil {
		return nil, false, withType(err, node.Type)
	}
	return magic[:], true, nil
}

func (s *Service) buildBody(node *Node, doc ValidJSON, prev []byte) (*RemotePayload, error) {
	s.transition(node.Type, StateEncrypting)
	ciphertext, err := Encrypt(doc, node.EncryptionKey)
	if err != nil {
		return nil, withType(err, node.Type)
	}

	msg, err := ChainMessage(ciphertext, prev)
	if err != nil {
		return nil, withType(err, node.Type)
	}

	s.transition(node.Type, StateSigning)
	sig, err := Sign(msg, node)
	if err != nil {
		return nil, withType(err, node.Type)
	}

	body := &RemotePayload{
		Version:   prt.PayloadVersion,
		Payload:   base64.StdEncoding.EncodeToString(ciphertext),
		Signature: utils.SignatureToBase64(sig),
		TypeID:    int32(node.Type),
	}
	if prev != nil {
		magic, err := utils.BytesToMagicHash(prev)
		if err != nil {
			return nil, newError(KindChain, "chain", node.Type, err)
		}
		body.PrevMagicHash = utils.MagicHashToString(magic)
	}
	return body, nil
}

// Load returns the decrypted document of type t; found is false when nothing was stored yet
func (s *Service) Load(ctx context.Context, t prt.EntryType) (ValidJSON, bool, error) {
	node, err := s.nodes(ctx, t)
	if err != nil {
		return nil, false, err
	}
	defer node.Zero()

	payload, err := s.client.Get(ctx, node.Address)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newError(KindNetwork, "fetch", t, err)
	}

	if payload.TypeID != int32(t) {
		return nil, false, newError(KindVerification, "verify", t,
			fmt.Errorf("payload type %d stored at %s", payload.TypeID, node.Address))
	}

	ciphertext, _, err := VerifyPayload(node.Address, payload)
	if err != nil {
		return nil, false, withType(err, t)
	}

	doc, err := Decrypt(ciphertext, node.EncryptionKey)
	if err != nil {
		return nil, false, withType(err, t)
	}
	return doc, true, nil
}

// LoadValue decodes the stored document of type t into v
func (s *Service) LoadValue(ctx context.Context, t prt.EntryType, v interface{}) (bool, error) {
	doc, found, err := s.Load(ctx, t)
	if err != nil || !found {
		return found, err
	}
	if err := utils.DeserializeData(doc, v); err != nil {
		return true, newError(KindValidation, "decode", t, err)
	}
	return true, nil
}

func (s *Service) wait(ctx context.Context) error {
	select {
	case <-s.clock.TickAfter(s.retryDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) transition(t prt.EntryType, state SaveState) {
	logger.Debug("metadata save state: type=", t, " state=", state)
	if s.observer != nil {
		s.observer(t, state)
	}
}

func withType(err error, t prt.EntryType) error {
	var e *Error
	if errors.As(err, &e) && e.Type == 0 {
		e.Type = t
	}
	return err
}
