package auth

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "annextube"
	keyringPrefix  = "apikey_"
)

// KeyringStore keeps credentials in the system keychain.
type KeyringStore struct{}

// NewKeyringStore probes the keychain and returns a store when it works.
// Headless hosts typically have no secret service; the caller falls back
// to the encrypted file store.
func NewKeyringStore() (*KeyringStore, error) {
	const probe = "availability_probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Save(cred *Credential) error {
	if cred == nil || cred.Profile == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshalling credential: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+cred.Profile, string(data)); err != nil {
		return fmt.Errorf("storing in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Retrieve(profile string) (*Credential, error) {
	if profile == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+profile)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("reading from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("unmarshalling credential: %w", err)
	}
	return &cred, nil
}

// List returns an empty slice: the keyring API cannot enumerate keys
// portably. The manager merges in the other backends' listings.
func (k *KeyringStore) List() ([]*Credential, error) {
	return []*Credential{}, nil
}

func (k *KeyringStore) Delete(profile string) error {
	if profile == "" {
		return ErrInvalidCredentials
	}

	if err := keyring.Delete(keyringService, keyringPrefix+profile); err != nil {
		if err == keyring.ErrNotFound {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("deleting from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists(profile string) bool {
	if profile == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+profile)
	return err == nil
}
