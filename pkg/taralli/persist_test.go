package taralli_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonKowalski/taralli/pkg/taralli"
)

const persistKey = "nav"

func persistedConfig(store taralli.Storage) taralli.Config {
	return taralli.Config{
		RootData:   containerRoot(),
		Levels:     inlineLevels(),
		Storage:    store,
		StorageKey: persistKey,
	}
}

func TestSnapshotShapeOnClose(t *testing.T) {
	store := newMemStorage()
	e := startEngine(t, persistedConfig(store))
	now := time.Now()

	now = settleAt(t, e, now, 2)
	now = drill(t, e, now)
	now = settleAt(t, e, now, 1)
	require.NoError(t, e.Close())

	var st taralli.PersistedState
	require.NoError(t, json.Unmarshal(store.m[persistKey], &st))

	assert.Equal(t, taralli.StateVersion, st.Version)
	assert.Equal(t, 1, st.Depth)
	assert.Equal(t, 1.0, st.CurrentIndex)
	require.Len(t, st.Stack, 1)
	assert.Equal(t, "c2", st.Stack[0].SelectedItemID)
	assert.Equal(t, 2, st.Stack[0].SelectedIndex)
}

func TestRestoreRebuildsFullPath(t *testing.T) {
	store := newMemStorage()
	e := startEngine(t, persistedConfig(store))
	now := time.Now()

	now = settleAt(t, e, now, 2)
	now = drill(t, e, now)
	now = settleAt(t, e, now, 1)
	require.NoError(t, e.Close())

	restored := startEngine(t, persistedConfig(store))
	assert.Equal(t, 1, restored.Depth())
	assert.Equal(t, 1.0, restored.CurrentIndex())
	assert.Equal(t, []string{"c2-0", "c2-1", "c2-2"}, itemIDs(restored.Items()))
	assert.Equal(t, []string{"c2"}, itemIDs(restored.Path()))

	// The breadcrumb trail is rebuilt too.
	var crumbs int
	for _, el := range restored.Render() {
		if el.Kind == taralli.ElementCrumb {
			crumbs++
			assert.Equal(t, "Container 2", el.Label)
		}
	}
	assert.Equal(t, 1, crumbs)
}

func TestRestoreTruncatesOnMissingItem(t *testing.T) {
	store := newMemStorage()
	blob, err := json.Marshal(taralli.PersistedState{
		Version:      taralli.StateVersion,
		Depth:        1,
		CurrentIndex: 2,
		Stack:        []taralli.PersistedFrame{{SelectedIndex: 0, SelectedItemID: "x"}},
	})
	require.NoError(t, err)
	store.m[persistKey] = blob

	e := startEngine(t, persistedConfig(store))
	assert.Equal(t, 0, e.Depth())
	assert.Equal(t, 0.0, e.CurrentIndex(), "a truncated restore lands at index zero")
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4"}, itemIDs(e.Items()))
}

func TestRestoreFallsBackToIndexWithoutID(t *testing.T) {
	store := newMemStorage()
	blob, err := json.Marshal(taralli.PersistedState{
		Version:      taralli.StateVersion,
		Depth:        1,
		CurrentIndex: 2,
		Stack:        []taralli.PersistedFrame{{SelectedIndex: 1}},
	})
	require.NoError(t, err)
	store.m[persistKey] = blob

	e := startEngine(t, persistedConfig(store))
	assert.Equal(t, 1, e.Depth())
	assert.Equal(t, 2.0, e.CurrentIndex())
	assert.Equal(t, []string{"c1"}, itemIDs(e.Path()))
	assert.Equal(t, []string{"c1-0", "c1-1", "c1-2"}, itemIDs(e.Items()))
}

func TestRestoreVersionMismatchIsColdStart(t *testing.T) {
	store := newMemStorage()
	blob, err := json.Marshal(taralli.PersistedState{
		Version:      taralli.StateVersion + 1,
		Depth:        1,
		CurrentIndex: 2,
		Stack:        []taralli.PersistedFrame{{SelectedItemID: "c2"}},
	})
	require.NoError(t, err)
	store.m[persistKey] = blob

	// Start must not fail; the stale snapshot is simply ignored.
	e := startEngine(t, persistedConfig(store))
	assert.Equal(t, 0, e.Depth())
	assert.Equal(t, 0.0, e.CurrentIndex())
}

func TestRestoreCorruptBlobIsColdStart(t *testing.T) {
	store := newMemStorage()
	store.m[persistKey] = []byte("{not json")

	e := startEngine(t, persistedConfig(store))
	assert.Equal(t, 0, e.Depth())
}

func TestFileStorageRoundTrip(t *testing.T) {
	fs := taralli.FileStorage{Dir: t.TempDir()}

	data, err := fs.Load("missing")
	require.NoError(t, err, "a missing snapshot is not an error")
	assert.Nil(t, data)

	require.NoError(t, fs.Save("nav", []byte(`{"version":1}`)))
	data, err = fs.Load("nav")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"version":1}`), data)
}
