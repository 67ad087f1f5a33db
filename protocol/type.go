package protocol

type MagicHash [32]byte

// Signature is a compact recoverable secp256k1 signature (recovery header + r + s)
type Signature [65]byte

// Wire payload version written on every PUT
const PayloadVersion = 1
