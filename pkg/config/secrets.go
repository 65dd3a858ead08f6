package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// Secrets file configuration.
const (
	secretsFileName = "secrets.json.enc"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768 // 2^15
	scryptR         = 8
	scryptP         = 1
	keySize         = 32 // AES-256
)

// Keystore holds decrypted secrets in memory for one engine instance.
// Precedence on Get: decrypted file contents, then environment variables.
type Keystore struct {
	secrets map[string]string
	dir     string
	mu      sync.RWMutex
}

// NewKeystore creates an empty keystore rooted at the given directory.
func NewKeystore(dir string) *Keystore {
	return &Keystore{
		secrets: make(map[string]string),
		dir:     dir,
	}
}

// OpenKeystore decrypts the secrets file under dir with the given password.
// A missing file yields an empty keystore, not an error.
func OpenKeystore(dir, password string) (*Keystore, error) {
	ks := NewKeystore(dir)
	path := filepath.Join(dir, secretsFileName)
	if _, err := os.Stat(path); err != nil {
		return ks, nil
	}

	secrets, err := decryptFile(path, password)
	if err != nil {
		return nil, err
	}
	ks.secrets = secrets
	return ks, nil
}

// Get returns a secret value by name.
func (k *Keystore) Get(name string) (string, error) {
	k.mu.RLock()
	value, exists := k.secrets[name]
	k.mu.RUnlock()
	if exists && value != "" {
		return value, nil
	}

	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in keystore or environment", name)
}

// Set stores a secret value in memory.
func (k *Keystore) Set(name, value string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.secrets[name] = value
}

// Names returns the stored secret names (not values).
func (k *Keystore) Names() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	names := make([]string, 0, len(k.secrets))
	for name := range k.secrets {
		names = append(names, name)
	}
	return names
}

// Save encrypts the in-memory secrets to dir/secrets.json.enc with 0600
// permissions. File layout: [salt][nonce][ciphertext+tag].
func (k *Keystore) Save(password string) error {
	k.mu.RLock()
	secretsCopy := make(map[string]string, len(k.secrets))
	for name, value := range k.secrets {
		secretsCopy[name] = value
	}
	k.mu.RUnlock()

	passwordBytes := []byte(password)
	defer zero(passwordBytes)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer zero(key)

	plaintext, err := json.Marshal(secretsCopy)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	if err := os.MkdirAll(k.dir, 0755); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}
	path := filepath.Join(k.dir, secretsFileName)
	if err := os.WriteFile(path, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

func decryptFile(path, password string) (map[string]string, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}
	if len(fileData) < saltSize+nonceSize {
		return nil, fmt.Errorf("secrets file is corrupt: too short")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	passwordBytes := []byte(password)
	defer zero(passwordBytes)

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive decryption key: %w", err)
	}
	defer zero(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secrets file (wrong password?): %w", err)
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted secrets: %w", err)
	}
	return secrets, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
