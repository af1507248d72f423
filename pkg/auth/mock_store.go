package auth

import (
	"fmt"
	"sync"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	creds map[string]*Credential
	mu    sync.RWMutex

	SaveError     error
	RetrieveError error
	ListError     error
	DeleteError   error
}

func NewMockStore() *MockStore {
	return &MockStore{creds: make(map[string]*Credential)}
}

// NewMockManager builds a manager backed only by a mock store, for tests
// that must not touch the keychain or the filesystem.
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return &Manager{stores: []Store{store}}, store
}

func (m *MockStore) Save(cred *Credential) error {
	if m.SaveError != nil {
		return m.SaveError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cred == nil || cred.Profile == "" {
		return ErrInvalidCredentials
	}
	c := *cred
	m.creds[cred.Profile] = &c
	return nil
}

func (m *MockStore) Retrieve(profile string) (*Credential, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if profile == "" {
		return nil, ErrInvalidCredentials
	}
	cred, ok := m.creds[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	c := *cred
	return &c, nil
}

func (m *MockStore) List() ([]*Credential, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var creds []*Credential
	for _, cred := range m.creds {
		c := *cred
		creds = append(creds, &c)
	}
	return creds, nil
}

func (m *MockStore) Delete(profile string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if profile == "" {
		return ErrInvalidCredentials
	}
	if _, ok := m.creds[profile]; !ok {
		return fmt.Errorf("%w for profile %q", ErrCredentialsNotFound, profile)
	}
	delete(m.creds, profile)
	return nil
}

func (m *MockStore) Exists(profile string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.creds[profile]
	return ok
}

// Count returns the number of stored credentials.
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}
