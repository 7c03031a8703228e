package icons

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/kvstore"
)

func TestPositionStore_SaveWritesNamespacedJSON(t *testing.T) {
	kv := kvstore.NewMemory()
	s := NewPositionStore(kv, nil)

	saved, err := s.Save(normalGrid(), "app-terminal", geom.Point{X: 220, Y: 120})
	require.NoError(t, err)
	require.Equal(t, geom.Point{X: 220, Y: 120}, saved)

	raw, ok, err := kv.Get("desktop-icon-app-terminal")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"x":220,"y":120}`, string(raw))
}

func TestPositionStore_SaveClampsIntoGrid(t *testing.T) {
	s := NewPositionStore(kvstore.NewMemory(), nil)

	saved, err := s.Save(normalGrid(), "file-notes", geom.Point{X: 5000, Y: -5})
	require.NoError(t, err)
	require.Equal(t, geom.Point{X: 944, Y: 20}, saved)

	got, ok := s.Lookup("file-notes")
	require.True(t, ok)
	require.Equal(t, saved, got)
}

func TestPositionStore_LoadFallsBackToOrigin(t *testing.T) {
	kv := kvstore.NewMemory()
	s := NewPositionStore(kv, nil)
	g := normalGrid()

	require.Equal(t, g.Origin(), s.Load(g, "missing"))

	require.NoError(t, kv.Set(Key("broken"), []byte("{not json")))
	_, ok := s.Lookup("broken")
	require.False(t, ok)
	require.Equal(t, geom.Point{X: 20, Y: 20}, s.Load(g, "broken"))
}

func TestPositionStore_Forget(t *testing.T) {
	kv := kvstore.NewMemory()
	s := NewPositionStore(kv, nil)

	_, err := s.Save(normalGrid(), "folder-docs", geom.Point{X: 20, Y: 120})
	require.NoError(t, err)
	require.NoError(t, s.Forget("folder-docs"))
	require.Equal(t, 0, kv.Len())

	// Forgetting twice is fine.
	require.NoError(t, s.Forget("folder-docs"))
}
