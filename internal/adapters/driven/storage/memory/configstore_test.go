package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

func TestConfigStore_ImplementsPort(t *testing.T) {
	var store driven.ConfigStore = NewConfigStore()
	assert.Equal(t, ":memory:", store.Path())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestConfigStore_Getters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("output", "json")
	_ = store.Set("drive.page_size", int64(250))
	_ = store.Set("ratelimit.drive_rps", 4.5)
	_ = store.Set("drive.supports_all_drives", true)
	_ = store.Set("scopes", []any{"a", 1, "b"})

	assert.Equal(t, "json", store.GetString("output"))
	assert.Equal(t, 250, store.GetInt("drive.page_size"))
	assert.Equal(t, 4, store.GetInt("ratelimit.drive_rps"))
	assert.Equal(t, 4.5, store.GetFloat("ratelimit.drive_rps"))
	assert.Equal(t, 250.0, store.GetFloat("drive.page_size"))
	assert.True(t, store.GetBool("drive.supports_all_drives"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("scopes"))

	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("output"))
	assert.Zero(t, store.GetFloat("output"))
	assert.False(t, store.GetBool("output"))
	assert.Nil(t, store.GetStringSlice("output"))
}

func TestConfigStore_UnsetAndKeys(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("b", 1)
	_ = store.Set("a", 2)
	_ = store.Set("c", 3)

	assert.NoError(t, store.Unset("c"))
	assert.NoError(t, store.Unset("missing"))

	assert.Equal(t, []string{"a", "b"}, store.Keys())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("k", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("k")
			_ = store.Keys()
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"k"}, store.Keys())
}
