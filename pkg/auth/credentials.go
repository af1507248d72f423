// Package auth stores and retrieves API keys, preferring the system
// keychain and falling back to an encrypted file, then to environment
// variables.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Credential is one named API key. Profile names let several keys coexist,
// e.g. one per project; the empty name resolves to "default".
type Credential struct {
	Profile      string    `json:"profile"`
	APIKey       string    `json:"api_key"`
	LastModified time.Time `json:"last_modified"`
}

// DefaultProfile is used when no profile name is given.
const DefaultProfile = "default"

// Store is the interface for credential storage backends.
type Store interface {
	// Save persists a credential.
	Save(cred *Credential) error

	// Retrieve gets the credential for a profile.
	Retrieve(profile string) (*Credential, error)

	// List returns all stored credentials.
	List() ([]*Credential, error)

	// Delete removes the credential for a profile.
	Delete(profile string) error

	// Exists checks whether a credential exists for a profile.
	Exists(profile string) bool
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Manager chains storage backends with fallback: the keychain when
// available, an encrypted file otherwise, the environment as last resort.
type Manager struct {
	stores []Store
}

// NewManager creates a manager with every backend available on this system.
func NewManager() (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("creating encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Save stores a credential in the first backend that accepts it.
func (m *Manager) Save(cred *Credential) error {
	if cred == nil || cred.APIKey == "" {
		return ErrInvalidCredentials
	}
	if cred.Profile == "" {
		cred.Profile = DefaultProfile
	}
	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Save(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("storing credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the credential from the first backend that has it.
func (m *Manager) Retrieve(profile string) (*Credential, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if cred, err := store.Retrieve(profile); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for profile %q", ErrCredentialsNotFound, profile)
}

// RetrieveDefault resolves the key for an unnamed invocation: the
// environment wins when set (so CI overrides stored profiles), then the
// default profile, then any single stored credential.
func (m *Manager) RetrieveDefault() (*Credential, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if cred, err := envStore.Retrieve(DefaultProfile); err == nil && cred != nil {
			return cred, nil
		}
	}

	if cred, err := m.Retrieve(DefaultProfile); err == nil {
		return cred, nil
	}

	creds, err := m.List()
	if err == nil && len(creds) == 1 {
		return creds[0], nil
	}

	return nil, ErrCredentialsNotFound
}

// List merges credentials from all backends, newest wins per profile.
func (m *Manager) List() ([]*Credential, error) {
	byProfile := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byProfile[cred.Profile]; !ok || cred.LastModified.After(existing.LastModified) {
				byProfile[cred.Profile] = cred
			}
		}
	}

	var result []*Credential
	for _, cred := range byProfile {
		result = append(result, cred)
	}
	return result, nil
}

// Delete removes the profile from every backend that holds it.
func (m *Manager) Delete(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("deleting credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for profile %q", ErrCredentialsNotFound, profile)
	}
	return nil
}

// configDir returns the per-user configuration directory, creating it on
// first use.
func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "annextube")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "annextube")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "annextube")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "annextube")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Sanitize returns a copy with the key masked, safe for logs and output.
func Sanitize(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}
	return &Credential{
		Profile:      cred.Profile,
		APIKey:       maskKey(cred.APIKey),
		LastModified: cred.LastModified,
	}
}

func maskKey(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
