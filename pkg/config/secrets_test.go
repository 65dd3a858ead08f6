package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeystoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ks := NewKeystore(dir)
	ks.Set("ANTHROPIC_API_KEY", "sk-one")
	ks.Set("OPENAI_API_KEY", "sk-two")
	require.NoError(t, ks.Save("hunter2"))

	reopened, err := OpenKeystore(dir, "hunter2")
	require.NoError(t, err)

	got, err := reopened.Get("ANTHROPIC_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-one", got)

	got, err = reopened.Get("OPENAI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-two", got)

	assert.ElementsMatch(t, []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY"}, reopened.Names())
}

func TestKeystoreWrongPassword(t *testing.T) {
	dir := t.TempDir()

	ks := NewKeystore(dir)
	ks.Set("GEMINI_API_KEY", "sk-secret")
	require.NoError(t, ks.Save("correct"))

	_, err := OpenKeystore(dir, "incorrect")
	assert.Error(t, err)
}

func TestKeystoreMissingFileIsEmpty(t *testing.T) {
	ks, err := OpenKeystore(t.TempDir(), "whatever")
	require.NoError(t, err)
	assert.Empty(t, ks.Names())
}

func TestKeystoreGetFallsBackToEnv(t *testing.T) {
	t.Setenv("FALLBACK_ONLY_KEY", "from-env")

	ks := NewKeystore(t.TempDir())
	got, err := ks.Get("FALLBACK_ONLY_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	_, err = ks.Get("NO_SUCH_KEY_ANYWHERE")
	assert.Error(t, err)
}

func TestKeystoreFilePermissions(t *testing.T) {
	dir := t.TempDir()

	ks := NewKeystore(dir)
	ks.Set("ANTHROPIC_API_KEY", "sk-one")
	require.NoError(t, ks.Save("pw"))

	info, err := os.Stat(filepath.Join(dir, secretsFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestKeystoreFileIsNotPlaintext(t *testing.T) {
	dir := t.TempDir()

	ks := NewKeystore(dir)
	ks.Set("ANTHROPIC_API_KEY", "sk-very-secret")
	require.NoError(t, ks.Save("pw"))

	data, err := os.ReadFile(filepath.Join(dir, secretsFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-very-secret")
}
