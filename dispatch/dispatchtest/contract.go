// Package dispatchtest holds shared tests for dispatch.SideChannel
// implementations.
package dispatchtest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolcall/dispatch"
	"github.com/jonwraymond/toolcall/toolerr"
)

// RunSideChannelContract checks the behavior every SideChannel must have.
// State values are JSON-compatible so that serializing stores compare equal.
func RunSideChannelContract(t *testing.T, store dispatch.SideChannel) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "contract-missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lifecycle", func(t *testing.T) {
		id := "contract-lifecycle"
		require.NoError(t, store.SetPhase(ctx, id, dispatch.PhaseRunning))
		require.NoError(t, store.SetLoading(ctx, id, true))

		rec, ok, err := store.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, id, rec.CallID)
		assert.Equal(t, dispatch.PhaseRunning, rec.Phase)
		assert.True(t, rec.Loading)
		assert.False(t, rec.UpdatedAt.IsZero())

		state := map[string]any{"document": map[string]any{"title": "T"}}
		require.NoError(t, store.SetPluginState(ctx, id, state))
		require.NoError(t, store.SetPhase(ctx, id, dispatch.PhaseSucceeded))
		require.NoError(t, store.SetLoading(ctx, id, false))

		rec, _, err = store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, dispatch.PhaseSucceeded, rec.Phase)
		assert.False(t, rec.Loading)
		assert.Equal(t, state, rec.State)
		assert.Nil(t, rec.Error)
	})

	t.Run("error", func(t *testing.T) {
		id := "contract-error"
		te := toolerr.New(toolerr.KindTransportError, "connect refused")
		require.NoError(t, store.SetPluginError(ctx, id, te))

		rec, ok, err := store.Get(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		require.NotNil(t, rec.Error)
		assert.Equal(t, toolerr.KindTransportError, rec.Error.Kind)
		assert.Equal(t, "connect refused", rec.Error.Message)
		assert.Nil(t, rec.State)
	})

	t.Run("delete", func(t *testing.T) {
		id := "contract-delete"
		require.NoError(t, store.SetLoading(ctx, id, true))
		require.NoError(t, store.Delete(ctx, id))
		_, ok, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent ids are isolated", func(t *testing.T) {
		const n = 32
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := fmt.Sprintf("contract-concurrent-%d", i)
				assert.NoError(t, store.SetLoading(ctx, id, true))
				assert.NoError(t, store.SetPluginState(ctx, id, map[string]any{"n": fmt.Sprint(i)}))
				assert.NoError(t, store.SetLoading(ctx, id, false))
			}()
		}
		wg.Wait()

		for i := range n {
			rec, ok, err := store.Get(ctx, fmt.Sprintf("contract-concurrent-%d", i))
			require.NoError(t, err)
			require.True(t, ok)
			assert.False(t, rec.Loading)
			assert.Equal(t, map[string]any{"n": fmt.Sprint(i)}, rec.State)
		}
	})
}
