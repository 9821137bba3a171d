package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeExtractor is a shell script standing in for the feature extractor.
//
// Its behaviour is driven by the input file, so one script serves a whole
// directory tree. The first line of the input is the exit status to return
// ("sleep" blocks until killed, "kill" dies from SIGTERM). Every following
// line is written to the output path. An input with no body leaves the
// output file absent.
//
// Each invocation is appended to a calls log as "input|profile".
type FakeExtractor struct {
	Path     string
	CallsLog string
}

const fakeExtractorScript = `#!/bin/sh
printf '%%s|%%s\n' "$1" "$3" >> '%s'
first=$(head -n 1 "$1")
if [ "$first" = "sleep" ]; then
	exec sleep 30
fi
if [ "$first" = "kill" ]; then
	kill -TERM $$
fi
tail -n +2 "$1" > "$2"
[ -s "$2" ] || rm -f "$2"
echo "extractor: processed $1"
echo "extractor: diagnostics" >&2
exit "$first"
`

// NewFakeExtractor writes the fake extractor into a temp directory.
func NewFakeExtractor(t *testing.T) *FakeExtractor {
	t.Helper()
	dir := t.TempDir()
	calls := filepath.Join(dir, "calls.log")
	path := filepath.Join(dir, "fake_extractor")

	script := fmt.Sprintf(fakeExtractorScript, calls)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake extractor: %v", err)
	}
	return &FakeExtractor{Path: path, CallsLog: calls}
}

// Call is one recorded extractor invocation.
type Call struct {
	Input   string
	Profile string
}

// Calls returns the invocations made so far, oldest first.
func (f *FakeExtractor) Calls(t *testing.T) []Call {
	t.Helper()
	data, err := os.ReadFile(f.CallsLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read calls log: %v", err)
	}

	var calls []Call
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		input, profile, _ := strings.Cut(line, "|")
		calls = append(calls, Call{Input: input, Profile: profile})
	}
	return calls
}

// WriteInput creates an input file for FakeExtractor at path. directive is
// the first line ("0", "1", "2", "sleep", ...) and body the features written
// on success.
func WriteInput(t *testing.T, path, directive, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	content := directive + "\n"
	if body != "" {
		content += body + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input %s: %v", path, err)
	}
	return path
}

// FeatureDoc returns an extractor-style JSON document whose recording
// identifier tag holds trackIDs: a bare string for one id, a list otherwise.
// With no ids the tag is omitted.
func FeatureDoc(trackIDs ...string) string {
	tags := map[string]any{"title": []string{"Test Tone"}}
	switch len(trackIDs) {
	case 0:
	case 1:
		tags["musicbrainz_trackid"] = trackIDs[0]
	default:
		tags["musicbrainz_trackid"] = trackIDs
	}

	doc := map[string]any{
		"metadata": map[string]any{
			"tags":             tags,
			"audio_properties": map[string]any{"length": 3.5, "codec": "flac"},
		},
		"lowlevel": map[string]any{"average_loudness": 0.93},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(data)
}
