package utils

import (
	prt "github.com/abcfe/abcfe-metadata/protocol"
)

// "meta:payload:"
func GetPayloadKey(address string) []byte {
	return []byte(prt.PrefixMetaPayload + address)
}

// "meta:magic:"
func GetMagicHashKey(address string) []byte {
	return []byte(prt.PrefixMetaMagic + address)
}

// "meta:count:"
func GetWriteCountKey(address string) []byte {
	return []byte(prt.PrefixMetaCount + address)
}
