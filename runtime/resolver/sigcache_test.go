package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/kh-lang/kh/core/types"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSigCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.kh", "fn one: Int { return 1 }\n")
	b := writeSource(t, dir, "b.kh", "fn two (x: Int) { echo $x }\n")
	cache := filepath.Join(dir, ".khsigs")

	sigs := []*types.Signature{
		{
			Name:   "one",
			Return: types.IntType,
			Origin: a,
		},
		{
			Name:   "two",
			Params: []types.Parameter{{Name: "x", Type: types.IntType, Binding: types.Required}},
			Flags:  []types.Flag{{Name: "v"}},
			Return: types.UnitType,
			Origin: b,
		},
	}

	require.NoError(t, WriteSigCacheFile(cache, []string{a, b}, sigs))

	got, err := ReadSigCacheFile(cache, []string{a, b})
	require.NoError(t, err)
	if diff := cmp.Diff(sigs, got); diff != "" {
		t.Errorf("cache round trip changed signatures (-want +got):\n%s", diff)
	}
}

func TestLoadSeedsFromFreshCache(t *testing.T) {
	dir := t.TempDir()
	script := writeSource(t, dir, "main.kh", "fn one { }\none\n")
	cache := filepath.Join(dir, ".khsigs")

	// A cache whose signature set differs from what a scan would find: if
	// the extra entry reaches the table, the header scan was skipped.
	sigs := []*types.Signature{
		{Name: "one", Return: types.UnitType, Origin: script},
		{Name: "phantom", Return: types.UnitType, Origin: "cache-only"},
	}
	require.NoError(t, WriteSigCacheFile(cache, []string{script}, sigs))

	set, err := Load(nil, script, nil, cache, quietLogger())
	require.NoError(t, err)

	got, ok := set.Table.Lookup("phantom")
	require.True(t, ok, "table is seeded from the cache, not a fresh scan")
	require.Equal(t, "cache-only", got.Origin)
}

func TestLoadRescansOnStaleCache(t *testing.T) {
	dir := t.TempDir()
	script := writeSource(t, dir, "main.kh", "fn one { }\none\n")
	cache := filepath.Join(dir, ".khsigs")

	stale := []*types.Signature{{Name: "phantom", Return: types.UnitType, Origin: "cache-only"}}
	require.NoError(t, WriteSigCacheFile(cache, []string{script}, stale))

	// Editing the script invalidates the digest.
	script = writeSource(t, dir, "main.kh", "# touched\nfn one { }\none\n")

	set, err := Load(nil, script, nil, cache, quietLogger())
	require.NoError(t, err)

	_, ok := set.Table.Lookup("phantom")
	require.False(t, ok, "stale cache contents are discarded")
	_, ok = set.Table.Lookup("one")
	require.True(t, ok, "fresh scan repopulates the table")

	// The load also rewrote the cache to match the rescanned headers.
	got, err := ReadSigCacheFile(cache, []string{script})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "one", got[0].Name)
}

func TestLoadWithoutCachePath(t *testing.T) {
	dir := t.TempDir()
	script := writeSource(t, dir, "main.kh", "fn one { }\none\n")

	set, err := Load(nil, script, nil, "", quietLogger())
	require.NoError(t, err)
	_, ok := set.Table.Lookup("one")
	require.True(t, ok)
	require.NoFileExists(t, filepath.Join(dir, ".khsigs"))
}

func TestSigCacheStaleness(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.kh", "fn one { }\n")
	b := writeSource(t, dir, "b.kh", "fn two { }\n")
	cache := filepath.Join(dir, ".khsigs")

	sigs := []*types.Signature{{Name: "one", Return: types.UnitType, Origin: a}}
	require.NoError(t, WriteSigCacheFile(cache, []string{a, b}, sigs))

	t.Run("fresh", func(t *testing.T) {
		_, err := ReadSigCacheFile(cache, []string{a, b})
		require.NoError(t, err)
	})

	t.Run("edited file", func(t *testing.T) {
		writeSource(t, dir, "a.kh", "fn one (x: Int) { }\n")
		_, err := ReadSigCacheFile(cache, []string{a, b})
		require.ErrorIs(t, err, ErrStaleCache)
	})

	t.Run("changed file set", func(t *testing.T) {
		writeSource(t, dir, "a.kh", "fn one { }\n") // restore
		c := writeSource(t, dir, "c.kh", "fn three { }\n")
		_, err := ReadSigCacheFile(cache, []string{a, b, c})
		require.ErrorIs(t, err, ErrStaleCache)
	})

	t.Run("missing cache file", func(t *testing.T) {
		_, err := ReadSigCacheFile(filepath.Join(dir, "nope"), []string{a})
		require.ErrorIs(t, err, ErrStaleCache)
	})

	t.Run("deleted source", func(t *testing.T) {
		require.NoError(t, os.Remove(b))
		_, err := ReadSigCacheFile(cache, []string{a, b})
		require.ErrorIs(t, err, ErrStaleCache)
	})
}
