package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaemonCmd_Use(t *testing.T) {
	assert.Equal(t, "daemon", daemonCmd.Use)
	flag := daemonCmd.Flags().Lookup("watch")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

func TestDaemonCmd_RunsSyncUntilCancelled(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.sync.ran = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-ts.sync.ran:
		case <-time.After(5 * time.Second):
		}
		cancel()
	}()

	out, err := execute(ctx, "daemon", "--watch=false")

	require.NoError(t, err)
	assert.Contains(t, out, "Syncing every 15m")
	ts.sync.mu.Lock()
	defer ts.sync.mu.Unlock()
	assert.Equal(t, 1, ts.sync.runs)
}

func TestDaemonCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	schedulerStore = nil

	_, err := execute(context.Background(), "daemon", "--watch=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}

func TestWatchConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hubsearch.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scheduler]\n"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan struct{}, 10)
	require.NoError(t, watchConfig(ctx, path, func() { reloads <- struct{}{} }))

	t.Run("ignores other files", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0600))
		select {
		case <-reloads:
			t.Fatal("unexpected reload for another file")
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("reloads on write", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("[scheduler]\ninterval = \"5m\"\n"), 0600))
		select {
		case <-reloads:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for reload")
		}
	})
}

func TestWatchConfig_MissingDirectory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := watchConfig(ctx, filepath.Join(t.TempDir(), "absent", "hubsearch.toml"), func() {})
	require.Error(t, err)
}
