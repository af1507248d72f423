package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000
)

// EncryptedFileStore keeps credentials in an AES-GCM encrypted file, with
// the key derived from a passphrase via PBKDF2.
type EncryptedFileStore struct {
	filepath   string
	passphrase string
	mu         sync.RWMutex
}

type encryptedFile struct {
	Salt        string
	Credentials map[string]Credential
}

// NewEncryptedFileStore creates an encrypted store at the given path. The
// passphrase comes from ANNEXTUBE_PASSPHRASE or a generated per-user
// passphrase file.
func NewEncryptedFileStore(filePath string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating directory: %w", err)
		}
	}

	store := &EncryptedFileStore{filepath: filePath}

	passphrase, err := store.getPassphrase()
	if err != nil {
		return nil, fmt.Errorf("resolving passphrase: %w", err)
	}
	store.passphrase = passphrase

	return store, nil
}

func (e *EncryptedFileStore) Save(cred *Credential) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cred == nil || cred.Profile == "" {
		return ErrInvalidCredentials
	}

	data, err := e.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading existing data: %w", err)
	}
	if data == nil {
		data = &encryptedFile{Credentials: make(map[string]Credential)}
	}

	data.Credentials[cred.Profile] = *cred
	return e.save(data)
}

func (e *EncryptedFileStore) Retrieve(profile string) (*Credential, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if profile == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("loading data: %w", err)
	}

	cred, ok := data.Credentials[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &cred, nil
}

func (e *EncryptedFileStore) List() ([]*Credential, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	data, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return []*Credential{}, nil
		}
		return nil, fmt.Errorf("loading data: %w", err)
	}

	var creds []*Credential
	for _, cred := range data.Credentials {
		c := cred
		creds = append(creds, &c)
	}
	return creds, nil
}

func (e *EncryptedFileStore) Delete(profile string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if profile == "" {
		return ErrInvalidCredentials
	}

	data, err := e.load()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("loading data: %w", err)
	}

	if _, ok := data.Credentials[profile]; !ok {
		return ErrCredentialsNotFound
	}
	delete(data.Credentials, profile)

	if len(data.Credentials) == 0 {
		return os.Remove(e.filepath)
	}
	return e.save(data)
}

func (e *EncryptedFileStore) Exists(profile string) bool {
	cred, err := e.Retrieve(profile)
	return err == nil && cred != nil
}

func (e *EncryptedFileStore) load() (*encryptedFile, error) {
	content, err := os.ReadFile(e.filepath)
	if err != nil {
		return nil, err
	}

	var fileData struct {
		Salt      string `json:"salt"`
		Encrypted string `json:"encrypted"`
	}
	if err := json.Unmarshal(content, &fileData); err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(fileData.Salt)
	if err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	encryptedBytes, err := base64.StdEncoding.DecodeString(fileData.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	decrypted, err := decrypt(encryptedBytes, key)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	var creds map[string]Credential
	if err := json.Unmarshal(decrypted, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	return &encryptedFile{Salt: fileData.Salt, Credentials: creds}, nil
}

func (e *EncryptedFileStore) save(data *encryptedFile) error {
	var salt []byte
	if data.Salt == "" {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("generating salt: %w", err)
		}
		data.Salt = base64.StdEncoding.EncodeToString(salt)
	} else {
		var err error
		salt, err = base64.StdEncoding.DecodeString(data.Salt)
		if err != nil {
			return fmt.Errorf("decoding salt: %w", err)
		}
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)

	payload, err := json.Marshal(data.Credentials)
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}
	encrypted, err := encrypt(payload, key)
	if err != nil {
		return fmt.Errorf("encrypting: %w", err)
	}

	fileData := struct {
		Salt      string    `json:"salt"`
		Encrypted string    `json:"encrypted"`
		Version   int       `json:"version"`
		Modified  time.Time `json:"modified"`
	}{
		Salt:      data.Salt,
		Encrypted: base64.StdEncoding.EncodeToString(encrypted),
		Version:   1,
		Modified:  time.Now(),
	}

	content, err := json.MarshalIndent(fileData, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling file data: %w", err)
	}

	tempFile := e.filepath + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return os.Rename(tempFile, e.filepath)
}

func (e *EncryptedFileStore) getPassphrase() (string, error) {
	if pass := os.Getenv("ANNEXTUBE_PASSPHRASE"); pass != "" {
		return pass, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}
	passphraseFile := filepath.Join(dir, ".passphrase")

	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}

	passphrase := generatePassphrase()
	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("saving passphrase: %w", err)
	}
	return passphrase, nil
}

func generatePassphrase() string {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
