package wallet

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/abcfe/abcfe-metadata/common/logger"
	"github.com/abcfe/abcfe-metadata/config"
	"github.com/abcfe/abcfe-metadata/metadata"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/scrypt"
)

var (
	ErrWalletExists    = errors.New("wallet already exists")
	ErrWalletLocked    = errors.New("wallet is locked")
	ErrInvalidPass     = errors.New("invalid password")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// WalletManager owns one mnemonic wallet and its keystore file
type WalletManager struct {
	mu        sync.RWMutex
	walletDir string
	scryptN   int
	wallet    *MnemonicWallet
}

type Option func(*WalletManager)

// WithScryptN overrides the scrypt cost used by SaveWallet
func WithScryptN(n int) Option {
	return func(wm *WalletManager) {
		wm.scryptN = n
	}
}

func NewWalletManager(walletDir string, opts ...Option) *WalletManager {
	wm := &WalletManager{
		walletDir: walletDir,
		scryptN:   DefaultScryptN,
	}
	for _, opt := range opts {
		opt(wm)
	}
	return wm
}

// InitWalletManager opens the wallet directory from config
func InitWalletManager(cfg *config.Config) *WalletManager {
	return NewWalletManager(cfg.Wallet.Path)
}

func (wm *WalletManager) WalletFile() string {
	return filepath.Join(wm.walletDir, WalletFileName)
}

// Exists reports whether a keystore file is present
func (wm *WalletManager) Exists() bool {
	_, err := os.Stat(wm.WalletFile())
	return err == nil
}

// Create new wallet. Fails when a keystore already exists in the directory.
func (wm *WalletManager) CreateWallet() (*MnemonicWallet, error) {
	if wm.Exists() {
		return nil, ErrWalletExists
	}

	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	return wm.RestoreWallet(mnemonic)
}

// Restore wallet from mnemonic
func (wm *WalletManager) RestoreWallet(mnemonic string) (*MnemonicWallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	w := &MnemonicWallet{
		Mnemonic: mnemonic,
		Seed:     bip39.NewSeed(mnemonic, ""),
	}

	wm.mu.Lock()
	wm.lock()
	wm.wallet = w
	wm.mu.Unlock()

	return w, nil
}

// SaveWallet encrypts the mnemonic with password and writes the keystore file
func (wm *WalletManager) SaveWallet(password []byte) error {
	wm.mu.RLock()
	w := wm.wallet
	wm.mu.RUnlock()
	if w == nil {
		return ErrWalletLocked
	}

	address, err := rootAddress(w.Seed)
	if err != nil {
		return err
	}

	c, err := encryptMnemonic([]byte(w.Mnemonic), password, wm.scryptN)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(KeystoreFile{
		Version: KeystoreVersion,
		Address: address,
		Crypto:  *c,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal keystore: %w", err)
	}

	if err := os.MkdirAll(wm.walletDir, 0700); err != nil {
		return fmt.Errorf("failed to create wallet dir: %w", err)
	}
	if err := os.WriteFile(wm.WalletFile(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}

	logger.Info("wallet saved: ", wm.WalletFile())
	return nil
}

// LoadWallet decrypts the keystore file with password
func (wm *WalletManager) LoadWallet(password []byte) (*MnemonicWallet, error) {
	ks, err := wm.readKeystore()
	if err != nil {
		return nil, err
	}

	mnemonic, err := decryptMnemonic(&ks.Crypto, password)
	if err != nil {
		return nil, err
	}
	defer clear(mnemonic)

	return wm.RestoreWallet(string(mnemonic))
}

// StoredAddress returns the root metadata address recorded in the keystore
func (wm *WalletManager) StoredAddress() (string, error) {
	ks, err := wm.readKeystore()
	if err != nil {
		return "", err
	}
	return ks.Address, nil
}

// Address derives the metadata address of entry type t
func (wm *WalletManager) Address(t prt.EntryType) (string, error) {
	seed, err := wm.MasterSeed(context.Background())
	if err != nil {
		return "", err
	}
	defer clear(seed)

	node, err := metadata.DeriveNode(seed, t)
	if err != nil {
		return "", err
	}
	defer node.Zero()

	return node.Address, nil
}

// MasterSeed returns a copy of the BIP39 seed of the unlocked wallet
func (wm *WalletManager) MasterSeed(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wm.mu.RLock()
	defer wm.mu.RUnlock()

	if wm.wallet == nil {
		return nil, ErrWalletLocked
	}
	return append([]byte(nil), wm.wallet.Seed...), nil
}

// Lock wipes the in-memory wallet
func (wm *WalletManager) Lock() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.lock()
}

func (wm *WalletManager) lock() {
	if wm.wallet != nil {
		clear(wm.wallet.Seed)
		wm.wallet = nil
	}
}

func (wm *WalletManager) readKeystore() (*KeystoreFile, error) {
	data, err := os.ReadFile(wm.WalletFile())
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var ks KeystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keystore: %w", err)
	}
	if ks.Version != KeystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", ks.Version)
	}
	return &ks, nil
}

func rootAddress(seed []byte) (string, error) {
	node, err := metadata.DeriveNode(seed, prt.EntryTypeRoot)
	if err != nil {
		return "", err
	}
	defer node.Zero()
	return node.Address, nil
}

func encryptMnemonic(plaintext, password []byte, n int) (*Crypto, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	dk, err := scrypt.Key(password, salt, n, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(dk)

	aesGCM, err := newGCM(dk)
	if err != nil {
		return nil, err
	}
	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	return &Crypto{
		Cipher:       "aes-256-gcm",
		CipherText:   hex.EncodeToString(ciphertext),
		CipherParams: CipherParams{IV: hex.EncodeToString(nonce)},
		KDF:          "scrypt",
		KDFParams: KDFParams{
			DkLen: scryptKeyLen,
			N:     n,
			P:     scryptP,
			R:     scryptR,
			Salt:  hex.EncodeToString(salt),
		},
		MAC: hex.EncodeToString(keystoreMAC(dk, ciphertext)),
	}, nil
}

func decryptMnemonic(c *Crypto, password []byte) ([]byte, error) {
	if c.KDF != "scrypt" || c.Cipher != "aes-256-gcm" {
		return nil, fmt.Errorf("unsupported keystore: kdf=%s cipher=%s", c.KDF, c.Cipher)
	}

	salt, err := hex.DecodeString(c.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	nonce, err := hex.DecodeString(c.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("failed to decode iv: %w", err)
	}
	ciphertext, err := hex.DecodeString(c.CipherText)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	mac, err := hex.DecodeString(c.MAC)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mac: %w", err)
	}

	p := c.KDFParams
	dk, err := scrypt.Key(password, salt, p.N, p.R, p.P, p.DkLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(dk)

	if subtle.ConstantTimeCompare(mac, keystoreMAC(dk, ciphertext)) != 1 {
		return nil, ErrInvalidPass
	}

	aesGCM, err := newGCM(dk)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesGCM.NonceSize() {
		return nil, fmt.Errorf("invalid iv length %d", len(nonce))
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidPass
	}
	return plaintext, nil
}

func keystoreMAC(dk, ciphertext []byte) []byte {
	h := sha256.New()
	h.Write(dk[16:32])
	h.Write(ciphertext)
	return h.Sum(nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != scryptKeyLen {
		return nil, fmt.Errorf("invalid key length %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

var _ metadata.SeedProvider = (*WalletManager)(nil)
