package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRoundTrip(t *testing.T) {
	manager, mockStore := NewMockManager()

	cred := &Credential{
		Profile: "work",
		APIKey:  "AIzaSyTestKey1234567890",
	}
	require.NoError(t, manager.Save(cred))

	retrieved, err := manager.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "work", retrieved.Profile)
	assert.Equal(t, cred.APIKey, retrieved.APIKey)
	assert.False(t, retrieved.LastModified.IsZero())

	creds, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, creds, 1)

	require.NoError(t, manager.Delete("work"))
	_, err = manager.Retrieve("work")
	assert.Error(t, err)
	assert.Zero(t, mockStore.Count())
}

func TestManagerRejectsEmptyKey(t *testing.T) {
	manager, _ := NewMockManager()
	assert.ErrorIs(t, manager.Save(&Credential{Profile: "p"}), ErrInvalidCredentials)
}

func TestManagerDefaultProfileFallback(t *testing.T) {
	manager, _ := NewMockManager()
	require.NoError(t, manager.Save(&Credential{APIKey: "key-without-profile"}))

	cred, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, cred.Profile)
}

func TestManagerRetrieveDefaultSingleCredential(t *testing.T) {
	manager, _ := NewMockManager()
	require.NoError(t, manager.Save(&Credential{Profile: "only", APIKey: "the-one-key"}))

	cred, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "only", cred.Profile)
}

func TestEnvironmentStoreOverride(t *testing.T) {
	t.Setenv("ANNEXTUBE_API_KEY", "env-key")

	store := NewEnvironmentStore()
	cred, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cred.APIKey)
	assert.Equal(t, DefaultProfile, cred.Profile)

	assert.ErrorIs(t, store.Save(&Credential{Profile: "x", APIKey: "y"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
}

func TestSanitizeMasksKey(t *testing.T) {
	cred := &Credential{Profile: "p", APIKey: "AIzaSyVeryLongSecretKey", LastModified: time.Now()}
	clean := Sanitize(cred)

	assert.Equal(t, "p", clean.Profile)
	assert.NotEqual(t, cred.APIKey, clean.APIKey)
	assert.Equal(t, "AIza...tKey", clean.APIKey)

	short := Sanitize(&Credential{APIKey: "tiny"})
	assert.Equal(t, "********", short.APIKey)
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("ANNEXTUBE_PASSPHRASE", "test-passphrase")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(&Credential{Profile: "default", APIKey: "secret-key-value", LastModified: time.Now()}))

	// A second store over the same file with the same passphrase decrypts.
	store2, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	cred, err := store2.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "secret-key-value", cred.APIKey)

	require.NoError(t, store2.Delete("default"))
	_, err = store2.Retrieve("default")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("ANNEXTUBE_PASSPHRASE", "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(&Credential{Profile: "default", APIKey: "k"}))

	t.Setenv("ANNEXTUBE_PASSPHRASE", "wrong")
	store2, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = store2.Retrieve("default")
	assert.Error(t, err)
}
