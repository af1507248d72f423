package auth

import (
	"os"
	"time"
)

// EnvironmentStore resolves the API key from ANNEXTUBE_API_KEY. Read-only;
// mainly for CI and one-off invocations.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Save is not supported for environment variables.
func (e *EnvironmentStore) Save(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment key regardless of the requested
// profile; the environment holds a single key.
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	key := os.Getenv("ANNEXTUBE_API_KEY")
	if key == "" {
		return nil, ErrCredentialsNotFound
	}

	if profile == "" {
		profile = DefaultProfile
	}
	return &Credential{
		Profile:      profile,
		APIKey:       key,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv("ANNEXTUBE_API_KEY") != ""
}
