// FILE: src/internal/layout/layout_test.go
package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layout.toml")
	store, err := NewStore(path, log.NewLogger())
	require.NoError(t, err)
	return store, path
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore("", log.NewLogger())
	assert.Error(t, err)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	state := store.Load()
	assert.Equal(t, PositionBottom, state.Position)
	assert.Equal(t, DefaultBottomHeight, state.Size)
}

func TestLoadCorruptFileReturnsDefaults(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{{{ not toml at all"), 0644))

	state := store.Load()
	assert.Equal(t, DefaultState(), state)
}

func TestSaveCreatesFileOnFirstRun(t *testing.T) {
	store, path := newTestStore(t)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, store.Save(State{Position: PositionBottom, Size: 300}))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, path := newTestStore(t)

	require.NoError(t, store.Save(State{Position: PositionRight, Size: 500}))
	_, err := os.Stat(path)
	require.NoError(t, err)

	state := store.Load()
	assert.Equal(t, PositionRight, state.Position)
	assert.Equal(t, 500, state.Size)
}

func TestSaveClampsSize(t *testing.T) {
	tests := []struct {
		name string
		in   State
		want State
	}{
		{"right below minimum", State{PositionRight, 100}, State{PositionRight, 280}},
		{"right above maximum", State{PositionRight, 5000}, State{PositionRight, 900}},
		{"bottom below minimum", State{PositionBottom, 50}, State{PositionBottom, 180}},
		{"bottom above maximum", State{PositionBottom, 9999}, State{PositionBottom, 700}},
		{"bottom in range", State{PositionBottom, 300}, State{PositionBottom, 300}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			require.NoError(t, store.Save(tt.in))
			assert.Equal(t, tt.want, store.Load())
		})
	}
}

func TestClampUnknownPositionFallsBack(t *testing.T) {
	got := State{Position: "floating", Size: 640}.Clamp()
	assert.Equal(t, DefaultState(), got)
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "layout.toml")
	store, err := NewStore(path, log.NewLogger())
	require.NoError(t, err)

	require.NoError(t, store.Save(State{Position: PositionBottom, Size: 200}))
	state := store.Load()
	assert.Equal(t, 200, state.Size)
}

func TestLastWriteWins(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Save(State{Position: PositionRight, Size: 400}))
	require.NoError(t, store.Save(State{Position: PositionBottom, Size: 250}))

	state := store.Load()
	assert.Equal(t, PositionBottom, state.Position)
	assert.Equal(t, 250, state.Size)
}
