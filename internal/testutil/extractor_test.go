package testutil

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeExtractor_WritesBodyAndExits(t *testing.T) {
	fake := NewFakeExtractor(t)
	dir := t.TempDir()
	input := WriteInput(t, filepath.Join(dir, "a.flac"), "0", `{"ok":true}`)
	output := filepath.Join(dir, "out.json")

	out, err := exec.Command(fake.Path, input, output, "/profiles/recordings.yaml").CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), "processed")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	calls := fake.Calls(t)
	require.Len(t, calls, 1)
	assert.Equal(t, input, calls[0].Input)
	assert.Equal(t, "/profiles/recordings.yaml", calls[0].Profile)
}

func TestFakeExtractor_NonZeroExitLeavesNoOutput(t *testing.T) {
	fake := NewFakeExtractor(t)
	dir := t.TempDir()
	input := WriteInput(t, filepath.Join(dir, "a.flac"), "2", "")
	output := filepath.Join(dir, "out.json")

	err := exec.Command(fake.Path, input, output, "p").Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFakeExtractor_NoCallsYet(t *testing.T) {
	fake := NewFakeExtractor(t)
	assert.Empty(t, fake.Calls(t))
}

func TestFeatureDoc(t *testing.T) {
	var doc struct {
		Metadata struct {
			Tags map[string]any `json:"tags"`
		} `json:"metadata"`
	}

	require.NoError(t, json.Unmarshal([]byte(FeatureDoc("a")), &doc))
	assert.Equal(t, "a", doc.Metadata.Tags["musicbrainz_trackid"])

	require.NoError(t, json.Unmarshal([]byte(FeatureDoc("a", "b")), &doc))
	assert.Equal(t, []any{"a", "b"}, doc.Metadata.Tags["musicbrainz_trackid"])

	doc.Metadata.Tags = nil
	require.NoError(t, json.Unmarshal([]byte(FeatureDoc()), &doc))
	assert.NotContains(t, doc.Metadata.Tags, "musicbrainz_trackid")
}

func TestFixedRunID(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedRunID("").Generate())
	gen := NewFixedRunID("run-1")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-1", gen.Generate())
}
