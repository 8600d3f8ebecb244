package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringManager_RoundTrip(t *testing.T) {
	keyring.MockInit()
	km := NewKeyringManager()
	require.True(t, km.IsAvailable())

	pw, err := km.GetNeo4jPassword()
	require.NoError(t, err)
	assert.Empty(t, pw, "missing secret is not an error")

	require.NoError(t, km.SetNeo4jPassword("s3cret-pass"))
	pw, err = km.GetNeo4jPassword()
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", pw)

	require.NoError(t, km.DeleteNeo4jPassword())
	pw, err = km.GetNeo4jPassword()
	require.NoError(t, err)
	assert.Empty(t, pw)

	assert.NoError(t, km.DeleteNeo4jPassword(), "deleting twice is fine")
}

func TestKeyringManager_RejectsEmptySecret(t *testing.T) {
	keyring.MockInit()
	km := NewKeyringManager()
	assert.Error(t, km.SetNeo4jPassword(""))
	assert.Error(t, km.SetRedisPassword(""))
}

func TestKeyringManager_Unavailable(t *testing.T) {
	keyring.MockInitWithError(assert.AnError)
	t.Cleanup(keyring.MockInit)
	km := NewKeyringManager()
	assert.False(t, km.IsAvailable())
}

func TestGetNeo4jPasswordSource(t *testing.T) {
	keyring.MockInit()
	km := NewKeyringManager()
	missing := filepath.Join(t.TempDir(), "credentials.yaml")

	t.Setenv("NEO4J_PASSWORD", "")
	assert.Equal(t, "none", km.GetNeo4jPasswordSource(missing).Source)

	present := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(present, []byte("neo4j_password: x\n"), 0600))
	info := km.GetNeo4jPasswordSource(present)
	assert.Equal(t, "config", info.Source)
	assert.False(t, info.Secure)

	require.NoError(t, km.SetNeo4jPassword("from-keychain"))
	assert.Equal(t, "keychain", km.GetNeo4jPasswordSource(present).Source)

	t.Setenv("NEO4J_PASSWORD", "from-env")
	assert.Equal(t, "env", km.GetNeo4jPasswordSource(present).Source)
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"verylongpassword", "ver...rd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskSecret(tt.in))
	}
}

func TestCredentialChain(t *testing.T) {
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "featurekg", "credentials.yaml")
	cm := newCredentialManager(ModeDevelopment, path)

	t.Setenv("NEO4J_PASSWORD", "")
	assert.False(t, cm.HasCredentials())
	_, err := cm.GetNeo4jPassword()
	assert.Error(t, err, "development mode never prompts")

	// Keychain available: saved there, not to the file.
	require.NoError(t, cm.SaveCredentials(Credentials{Neo4jPassword: "kc", RedisPassword: "rd"}))
	pw, err := cm.GetNeo4jPassword()
	require.NoError(t, err)
	assert.Equal(t, "kc", pw)
	assert.Equal(t, "rd", cm.GetRedisPassword())
	assert.NoFileExists(t, path)

	t.Setenv("NEO4J_PASSWORD", "env")
	pw, err = cm.GetNeo4jPassword()
	require.NoError(t, err)
	assert.Equal(t, "env", pw)
}

func TestCredentialFileFallback(t *testing.T) {
	keyring.MockInitWithError(assert.AnError)
	t.Cleanup(keyring.MockInit)
	t.Setenv("NEO4J_PASSWORD", "")
	t.Setenv("REDIS_PASSWORD", "")

	path := filepath.Join(t.TempDir(), "featurekg", "credentials.yaml")
	cm := newCredentialManager(ModeDevelopment, path)
	require.NoError(t, cm.SaveCredentials(Credentials{Neo4jPassword: "file-pw"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	assert.True(t, cm.HasCredentials())
	cfg := Default()
	require.NoError(t, cm.ResolveSecrets(cfg))
	assert.Equal(t, "file-pw", cfg.Graph.Password)
}
