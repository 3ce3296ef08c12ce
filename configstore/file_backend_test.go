package configstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	backend := NewFileBackend(path, nil)
	ctx := context.Background()

	_, ok, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cfg := DefaultConfig()
	cfg.MaxOps = 77
	cfg.EULAAccepted = true
	require.NoError(t, backend.Save(ctx, cfg))

	loaded, ok, err := backend.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 77, loaded.MaxOps)
	assert.True(t, loaded.EULAAccepted)
}

func TestFileBackend_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxOps: [this is not an int"), 0o600))

	backend := NewFileBackend(path, nil)
	_, _, err := backend.Load(context.Background())
	assert.Error(t, err)
}
