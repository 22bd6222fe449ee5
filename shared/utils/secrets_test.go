package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecret(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db_password"), []byte("  s3cret\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("\n"), 0o600))

	t.Run("Trims value", func(t *testing.T) {
		v, err := ReadSecret(dir, "db_password")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := ReadSecret(dir, "nope")
		assert.ErrorIs(t, err, ErrSecretMissing)
	})

	t.Run("Empty file", func(t *testing.T) {
		_, err := ReadSecret(dir, "empty")
		assert.Error(t, err)
	})

	t.Run("Optional missing is not an error", func(t *testing.T) {
		v, err := ReadOptionalSecret(dir, "nope")
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}
