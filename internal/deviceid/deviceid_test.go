// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package deviceid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_PersistsAndReuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "device_id")

	first, err := LoadOrCreate(path)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "device id must be stable per install")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrCreate_EmptyFileRegenerates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	id, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestLoadOrCreate_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	require.NoError(t, os.WriteFile(path, []byte("not-a-uuid"), 0o600))

	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}

func TestLoadOrCreate_EphemeralWithoutPath(t *testing.T) {
	a, err := LoadOrCreate("")
	require.NoError(t, err)
	b, err := LoadOrCreate("")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
