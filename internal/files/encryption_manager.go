package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filippo.io/age"
)

var (
	ErrNoRecipients = errors.New("no recipients configured for encryption")
	ErrNoIdentities = errors.New("no identities configured for decryption")
)

const ageHeader = "age-encryption.org/v1"

// EncryptionManager encrypts documents to a set of age recipients and
// decrypts them with a set of age identities.
type EncryptionManager struct {
	mu         sync.RWMutex
	recipients []age.Recipient
	identities []age.Identity
}

func NewEncryptionManager() *EncryptionManager {
	return &EncryptionManager{}
}

// LoadEncryptionKeys loads an identity file and a recipients file, both in
// the formats read by the age command line tool.
func (em *EncryptionManager) LoadEncryptionKeys(identitiesFile, recipientsFile string) error {
	if identitiesFile == "" {
		return fmt.Errorf("no identity file specified")
	}
	if recipientsFile == "" {
		return fmt.Errorf("no recipient file specified")
	}

	identities, err := readKeyFile(identitiesFile, age.ParseIdentities)
	if err != nil {
		return fmt.Errorf("failed to load identity file %s: %w", identitiesFile, err)
	}
	recipients, err := readKeyFile(recipientsFile, age.ParseRecipients)
	if err != nil {
		return fmt.Errorf("failed to load recipient file %s: %w", recipientsFile, err)
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	em.identities = append(em.identities, identities...)
	em.recipients = append(em.recipients, recipients...)
	return nil
}

func readKeyFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	const fileSizeLimit = 16 << 20 // 16MiB
	return parse(io.LimitReader(f, fileSizeLimit))
}

// AddRecipient adds a recipient for encryption (public key)
func (em *EncryptionManager) AddRecipient(publicKey string) error {
	recipient, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return fmt.Errorf("failed to parse recipient: %w", err)
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	em.recipients = append(em.recipients, recipient)
	return nil
}

// AddIdentity adds an identity for decryption (private key)
func (em *EncryptionManager) AddIdentity(identity string) error {
	id, err := age.ParseX25519Identity(identity)
	if err != nil {
		return fmt.Errorf("failed to parse identity: %w", err)
	}

	em.mu.Lock()
	defer em.mu.Unlock()
	em.identities = append(em.identities, id)
	return nil
}

// CanEncrypt reports whether any recipients are configured.
func (em *EncryptionManager) CanEncrypt() bool {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.recipients) > 0
}

// CanDecrypt reports whether any identities are configured.
func (em *EncryptionManager) CanDecrypt() bool {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.identities) > 0
}

// Encrypt encrypts content using the configured recipients
func (em *EncryptionManager) Encrypt(content string) ([]byte, error) {
	em.mu.RLock()
	defer em.mu.RUnlock()

	if len(em.recipients) == 0 {
		return nil, ErrNoRecipients
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, em.recipients...)
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypt writer: %w", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encrypt writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt decrypts encrypted content using the configured identities
func (em *EncryptionManager) Decrypt(encrypted []byte) (string, error) {
	em.mu.RLock()
	defer em.mu.RUnlock()

	if len(em.identities) == 0 {
		return "", ErrNoIdentities
	}

	r, err := age.Decrypt(bytes.NewReader(encrypted), em.identities...)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("failed to read decrypted content: %w", err)
	}
	return buf.String(), nil
}

// IsAgeEncrypted checks if content is age encrypted by looking for the format header
func IsAgeEncrypted(content []byte) bool {
	return bytes.HasPrefix(content, []byte(ageHeader))
}

// GenerateKeyPair creates a new X25519 key pair and writes it to keysDir as
// <name>.pub and <name>.txt.
func GenerateKeyPair(keysDir string) (publicPath, privatePath string, err error) {
	if strings.TrimSpace(keysDir) == "" {
		return "", "", fmt.Errorf("keys directory must be specified")
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate identity: %w", err)
	}

	if err := os.MkdirAll(keysDir, 0700); err != nil {
		return "", "", fmt.Errorf("failed to create key directory: %w", err)
	}

	now := time.Now()
	baseName := "livepad-key-" + now.Format("2006-01-02-15-04-05")
	publicPath = filepath.Join(keysDir, baseName+".pub")
	privatePath = filepath.Join(keysDir, baseName+".txt")

	if err := os.WriteFile(publicPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return "", "", fmt.Errorf("failed to save public key: %w", err)
	}

	// Private key with restricted permissions
	private := fmt.Sprintf("# age identity file\n# generated: %s\n%s\n",
		now.Format("2006-01-02 15:04:05"), identity.String())
	if err := os.WriteFile(privatePath, []byte(private), 0600); err != nil {
		return "", "", fmt.Errorf("failed to save private key: %w", err)
	}

	return publicPath, privatePath, nil
}
