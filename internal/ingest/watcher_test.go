package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatchInbox_EmitsArchives(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.zip")
	require.NoError(t, os.WriteFile(existing, []byte("zip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := WatchInbox(ctx, WatchConfig{Dir: dir, InitialScan: true}, zap.NewNop())
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial archive was not emitted")
	}

	fresh := filepath.Join(dir, "fresh.zip")
	require.NoError(t, os.WriteFile(fresh, []byte("zip"), 0o600))

	select {
	case p := <-events:
		assert.Equal(t, fresh, p)
	case <-time.After(5 * time.Second):
		t.Fatal("new archive was not emitted")
	}

	cancel()
	for range events {
	}
}

func TestWatchInbox_RequiresDir(t *testing.T) {
	_, _, err := WatchInbox(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
