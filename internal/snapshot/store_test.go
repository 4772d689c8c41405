package snapshot

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		"main.js": {
			Bundled:  500,
			Minified: 200,
			Gzipped:  100,
			Treeshaken: &Treeshaken{
				ESM: ModuleSize{Code: 80, ImportStatements: 12},
				CJS: BundleSize{Code: 95},
			},
		},
		"legacy.cjs": {Bundled: 40, Minified: 20, Gzipped: 30},
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/work/.size-snapshot.json")

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap)
	assert.NotNil(t, snap)
}

func TestStore_LoadEmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/snap.json", []byte("  \n"), 0644))

	snap, err := NewStore(fs, "/snap.json").Load()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestStore_LoadMalformedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/snap.json", []byte("{not json"), 0644))

	_, err := NewStore(fs, "/snap.json").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse snapshot file")
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/out/nested/.size-snapshot.json")
	want := sampleSnapshot()

	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_ReSaveIsByteIdentical(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/snap.json")
	require.NoError(t, store.Save(sampleSnapshot()))

	first, err := afero.ReadFile(fs, "/snap.json")
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(loaded))

	second, err := afero.ReadFile(fs, "/snap.json")
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestStore_OmitsTreeshakenForNonModuleRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/snap.json")
	require.NoError(t, store.Upsert("index.cjs", Record{Bundled: 3, Minified: 2, Gzipped: 1}))

	data, err := afero.ReadFile(fs, "/snap.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"index.cjs\": {\n    \"bundled\": 3,\n    \"minified\": 2,\n    \"gzipped\": 1\n  }\n}\n", string(data))
}

func TestStore_UpsertKeepsOtherEntries(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/snap.json")

	require.NoError(t, store.Upsert("a.js", Record{Bundled: 1}))
	require.NoError(t, store.Upsert("b.js", Record{Bundled: 2}))
	require.NoError(t, store.Upsert("a.js", Record{Bundled: 3}))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		"a.js": {Bundled: 3},
		"b.js": {Bundled: 2},
	}, snap)
}

func TestStore_UpsertSeesExternalWrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	first := NewStore(fs, "/snap.json")
	second := NewStore(fs, "/snap.json")

	require.NoError(t, first.Upsert("a.js", Record{Bundled: 1}))
	require.NoError(t, second.Upsert("b.js", Record{Bundled: 2}))

	snap, err := first.Load()
	require.NoError(t, err)
	assert.Len(t, snap, 2)
}

func TestStore_Get(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/snap.json")
	require.NoError(t, store.Save(sampleSnapshot()))

	t.Run("existing key", func(t *testing.T) {
		rec, ok, err := store.Get("main.js")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 100, rec.Gzipped)
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok, err := store.Get("other.js")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/snap.json")
	names := []string{"a.js", "b.js", "c.js", "d.js", "e.js", "f.js"}

	done := make(chan error, len(names))
	for i, name := range names {
		go func(name string, size int) {
			done <- store.Upsert(name, Record{Bundled: size})
		}(name, i)
	}
	for range names {
		require.NoError(t, <-done)
	}

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, snap, len(names))
}

func TestEncode_DoesNotEscapeChunkNames(t *testing.T) {
	snap := Snapshot{"a<b>&c.js": {Bundled: 1, Minified: 1, Gzipped: 1}}

	data, err := Encode(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"a<b>&c.js": {`)
	assert.NotContains(t, string(data), `\u003c`)
	assert.Equal(t, byte('\n'), data[len(data)-1])
	assert.NotEqual(t, "\n\n", string(data[len(data)-2:]))

	fs := afero.NewMemMapFs()
	store := NewStore(fs, "sizes.json")
	require.NoError(t, store.Save(snap))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}
