package metadata

import (
	"context"
	"errors"

	prt "github.com/abcfe/abcfe-metadata/protocol"
)

// RemoteNodes is the root entry document. It carries the serialized metadata
// purpose key so a device that can only derive the root node (from wallet
// credentials) recovers access to every other entry type.
type RemoteNodes struct {
	Metadata string `json:"metadata"`
}

// SaveRemoteNodes stores this service's purpose key under the root entry of rootSeeds.
// Only seed-backed services can export their purpose key.
func (s *Service) SaveRemoteNodes(ctx context.Context, rootSeeds SeedProvider) error {
	if s.seeds == nil {
		return newError(KindSeedUnavailable, "derive", prt.EntryTypeRoot, errors.New("service has no master seed"))
	}

	seed, err := s.seeds.MasterSeed(ctx)
	if err != nil {
		return newError(KindSeedUnavailable, "derive", prt.EntryTypeRoot, err)
	}
	defer clear(seed)

	xprv, err := PurposeKey(seed)
	if err != nil {
		return err
	}

	return s.rootService(rootSeeds).SaveValue(ctx, prt.EntryTypeRoot, &RemoteNodes{Metadata: xprv})
}

// LoadRemoteNodes reads the root entry of rootSeeds
func (s *Service) LoadRemoteNodes(ctx context.Context, rootSeeds SeedProvider) (*RemoteNodes, bool, error) {
	var nodes RemoteNodes
	found, err := s.rootService(rootSeeds).LoadValue(ctx, prt.EntryTypeRoot, &nodes)
	if err != nil || !found {
		return nil, found, err
	}

	if nodes.Metadata == "" {
		return nil, true, newError(KindValidation, "validate", prt.EntryTypeRoot, errors.New("root entry has no metadata key"))
	}
	return &nodes, true, nil
}

func (s *Service) rootService(rootSeeds SeedProvider) *Service {
	return &Service{
		seeds:      rootSeeds,
		nodes:      seedNodes(rootSeeds),
		client:     s.client,
		clock:      s.clock,
		retryDelay: s.retryDelay,
		observer:   s.observer,
	}
}
