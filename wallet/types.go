package wallet

// Keystore file layout
type CipherParams struct {
	IV string `json:"iv"` // GCM nonce, hex
}

type KDFParams struct {
	DkLen int    `json:"dklen"` // Derived key length
	N     int    `json:"n"`     // CPU/Memory cost
	P     int    `json:"p"`     // Parallelization parameter
	R     int    `json:"r"`     // Block size
	Salt  string `json:"salt"`  // Salt, hex
}

type Crypto struct {
	Cipher       string       `json:"cipher"`     // "aes-256-gcm"
	CipherText   string       `json:"ciphertext"` // Encrypted mnemonic, hex
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"` // "scrypt"
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"` // sha256(dk[16:32] || ciphertext), hex
}

// KeystoreFile is what SaveWallet writes to disk
type KeystoreFile struct {
	Version int    `json:"version"`
	Address string `json:"address"` // root metadata address, readable without the password
	Crypto  Crypto `json:"crypto"`
}

// Mnemonic-based wallet types
type MnemonicWallet struct {
	Mnemonic string `json:"mnemonic"` // 24 words
	Seed     []byte `json:"-"`        // BIP39 seed, never persisted in clear
}

const (
	KeystoreVersion = 1
	WalletFileName  = "wallet.json"

	// 256 bits of entropy give a 24 word mnemonic
	MnemonicEntropyBits = 256
)

// scrypt parameters
const (
	DefaultScryptN = 1 << 18
	scryptR        = 8
	scryptP        = 1
	scryptKeyLen   = 32
	saltLen        = 32
	nonceLen       = 12
)
