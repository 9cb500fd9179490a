package identity

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider_CreatesOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	provider := NewFileProvider(dir)

	_, err := os.Stat(provider.Path())
	require.True(t, os.IsNotExist(err), "identifier file should not exist before first use")

	id, err := provider.DeviceID(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(id)
	assert.NoError(t, err, "identifier should be a UUID")

	data, err := os.ReadFile(provider.Path())
	require.NoError(t, err)
	assert.Equal(t, id+"\n", string(data))
}

func TestFileProvider_StableAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileProvider(dir).DeviceID(ctx)
	require.NoError(t, err)

	second, err := NewFileProvider(dir).DeviceID(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFileProvider_ReplacesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	provider := NewFileProvider(dir)
	require.NoError(t, os.WriteFile(provider.Path(), []byte("not-a-uuid"), 0600))

	id, err := provider.DeviceID(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)

	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestFileProvider_Concurrent(t *testing.T) {
	provider := NewFileProvider(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := provider.DeviceID(ctx)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestFileProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileProvider(t.TempDir()).DeviceID(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic(t *testing.T) {
	id, err := Static("device-1").DeviceID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "device-1", id)
}
