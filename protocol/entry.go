package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// EntryType selects which derived node, and therefore which remote address,
// a metadata document is stored under.
//
// NOTE: The numeric ids are part of the derivation path. Changing one makes the
// data previously stored under it unreachable.
type EntryType int32

const (
	EntryTypeRoot               EntryType = -1
	EntryTypeWhatsNew           EntryType = 2
	EntryTypeBuySell            EntryType = 3
	EntryTypeContacts           EntryType = 4
	EntryTypeEthereum           EntryType = 5
	EntryTypeShapeShift         EntryType = 6
	EntryTypeBitcoinCash        EntryType = 7
	EntryTypeBitcoin            EntryType = 8
	EntryTypeLockbox            EntryType = 9
	EntryTypeUserCredentials    EntryType = 10
	EntryTypeStellar            EntryType = 11
	EntryTypeWalletCredentials  EntryType = 12
	EntryTypeWalletConnect      EntryType = 13
	EntryTypeAccountCredentials EntryType = 14
)

// Version of the entry type table below
const EntryTableVersion = 1

var entryNames = map[EntryType]string{
	EntryTypeRoot:               "root",
	EntryTypeWhatsNew:           "whats-new",
	EntryTypeBuySell:            "buy-sell",
	EntryTypeContacts:           "contacts",
	EntryTypeEthereum:           "ethereum",
	EntryTypeShapeShift:         "shapeshift",
	EntryTypeBitcoinCash:        "bitcoin-cash",
	EntryTypeBitcoin:            "bitcoin",
	EntryTypeLockbox:            "lockbox",
	EntryTypeUserCredentials:    "user-credentials",
	EntryTypeStellar:            "stellar",
	EntryTypeWalletCredentials:  "wallet-credentials",
	EntryTypeWalletConnect:      "wallet-connect",
	EntryTypeAccountCredentials: "account-credentials",
}

// Valid reports whether t is part of the entry type table
func (t EntryType) Valid() bool {
	_, ok := entryNames[t]
	return ok
}

func (t EntryType) String() string {
	if name, ok := entryNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int32(t))
}

// ParseEntryType accepts either the table name or the numeric id
func ParseEntryType(s string) (EntryType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range entryNames {
		if name == s || fmt.Sprintf("%d", int32(t)) == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown entry type: %q", s)
}

// EntryTypes returns the table sorted by id
func EntryTypes() []EntryType {
	types := make([]EntryType, 0, len(entryNames))
	for t := range entryNames {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
