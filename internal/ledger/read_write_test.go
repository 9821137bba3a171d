package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func TestContains_EmptyLedger(t *testing.T) {
	l := createTestLedger(t)

	found, err := l.Contains(t.Context(), "/music/a.flac")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecord_ThenContains(t *testing.T) {
	l := createTestLedger(t)
	ctx := t.Context()

	require.NoError(t, l.Record(ctx, "/music/a.flac", ""))
	require.NoError(t, l.Record(ctx, "/music/b.flac", "extractor"))

	for _, p := range []string{"/music/a.flac", "/music/b.flac"} {
		found, err := l.Contains(ctx, p)
		require.NoError(t, err)
		assert.True(t, found, p)
	}

	found, err := l.Contains(ctx, "/music/c.flac")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecord_DuplicatesAllowed(t *testing.T) {
	l := createTestLedger(t)
	ctx := t.Context()

	require.NoError(t, l.Record(ctx, "/music/a.flac", "json"))
	require.NoError(t, l.Record(ctx, "/music/a.flac", ""))

	entries, err := l.Entries(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "json", entries[0].Reason)
	assert.Empty(t, entries[1].Reason)
	assert.Less(t, entries[0].ID, entries[1].ID)
}

func TestRecord_CanonicalizesPath(t *testing.T) {
	l := createTestLedger(t)
	ctx := t.Context()

	dir := t.TempDir()
	t.Chdir(dir)

	nfd := norm.NFD.String("Beyoncé.flac")
	require.NoError(t, l.Record(ctx, filepath.Join(".", "sub", "..", nfd), ""))

	abs := filepath.Join(dir, norm.NFC.String("Beyoncé.flac"))
	found, err := l.Contains(ctx, abs)
	require.NoError(t, err)
	assert.True(t, found)

	entries, err := l.Entries(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, norm.NFC.String(entries[0].Path), entries[0].Path)
	assert.True(t, filepath.IsAbs(entries[0].Path))
}

func TestRecord_StampsRunID(t *testing.T) {
	l := createTestLedger(t)
	require.NoError(t, l.Record(t.Context(), "/music/a.flac", ""))

	entries, err := l.Entries(t.Context(), Filter{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1", entries[0].RunID)

	entries, err = l.Entries(t.Context(), Filter{RunID: "other"})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestEntries_Filters(t *testing.T) {
	l := createTestLedger(t)
	ctx := t.Context()

	require.NoError(t, l.Record(ctx, "/m/1.mp3", ""))
	require.NoError(t, l.Record(ctx, "/m/2.mp3", "nombid"))
	require.NoError(t, l.Record(ctx, "/m/3.mp3", ""))
	require.NoError(t, l.Record(ctx, "/m/4.mp3", "extractor"))
	require.NoError(t, l.Record(ctx, "/m/5.mp3", ""))

	ok, err := l.Entries(ctx, Filter{Reason: ReasonSuccess})
	require.NoError(t, err)
	assert.Equal(t, []string{"/m/1.mp3", "/m/3.mp3", "/m/5.mp3"}, paths(ok))

	nombid, err := l.Entries(ctx, Filter{Reason: "nombid"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/m/2.mp3"}, paths(nombid))

	last, err := l.Entries(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"/m/4.mp3", "/m/5.mp3"}, paths(last))

	lastOK, err := l.Entries(ctx, Filter{Reason: ReasonSuccess, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"/m/5.mp3"}, paths(lastOK))
}

func TestStats(t *testing.T) {
	l := createTestLedger(t)
	ctx := t.Context()

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)

	require.NoError(t, l.Record(ctx, "/m/1.mp3", ""))
	require.NoError(t, l.Record(ctx, "/m/2.mp3", "nombid"))
	require.NoError(t, l.Record(ctx, "/m/3.mp3", ""))
	require.NoError(t, l.Record(ctx, "/m/4.mp3", "json"))

	stats, err = l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ReasonCount{
		{Reason: "json", Count: 1},
		{Reason: "nombid", Count: 1},
		{Reason: ReasonSuccess, Count: 2},
	}, stats)
}

func TestLedger_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	l1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l1.Record(t.Context(), "/m/1.mp3", "nombid"))
	require.NoError(t, l1.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()

	found, err := l2.Contains(t.Context(), "/m/1.mp3")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEqual(t, "", l2.RunID())

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}
