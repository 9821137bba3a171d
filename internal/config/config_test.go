package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, "acousticbrainz.org", s.Host)
	assert.Equal(t, "streaming_extractor_music", s.Extractor)
	assert.Contains(t, s.Extensions, "flac")
	require.NoError(t, s.Validate())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	s, err := Load("", true)
	require.NoError(t, err)
	assert.Equal(t, Default().Host, s.Host)
}

func TestLoad_MissingOptionalFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default().Host, s.Host)
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read settings file")
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
host: localhost:8080
extractor: /opt/essentia/extractor
extensions: [".MP3", "flac", "flac", " Ogg "]
database: /tmp/ledger.db
profiles:
  recordings: /etc/abz/recordings.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", s.Host)
	assert.Equal(t, "/opt/essentia/extractor", s.Extractor)
	assert.Equal(t, []string{"mp3", "flac", "ogg"}, s.Extensions)
	assert.Equal(t, "/tmp/ledger.db", s.Database)
	assert.Equal(t, "/etc/abz/recordings.yaml", s.Profiles.Recordings)
	assert.Empty(t, s.Profiles.Datasets)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, Default().Host, s.Host)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hots: typo.example\n"), 0644))

	_, err := Load(path, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse settings file")
}

func TestApplyEnv_FileThenProcess(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ABZ_HOST=from-file:9000\nABZ_DB=/tmp/file.db\n"), 0644))
	t.Setenv(EnvDatabase, "/tmp/process.db")

	s := Default()
	require.NoError(t, s.ApplyEnv(envFile, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file:9000", s.Host)
	assert.Equal(t, "/tmp/process.db", s.Database)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"empty host", func(s *Settings) { s.Host = "" }, "host is required"},
		{"scheme in host", func(s *Settings) { s.Host = "http://x" }, "must not include a scheme"},
		{"no extractor", func(s *Settings) { s.Extractor = " " }, "extractor is required"},
		{"no database", func(s *Settings) { s.Database = "" }, "database is required"},
		{"no extensions", func(s *Settings) { s.Extensions = nil }, "extensions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAllowed(t *testing.T) {
	s := Default()
	s.Extensions = []string{"mp3", "flac"}

	assert.True(t, s.Allowed("/music/a.mp3"))
	assert.True(t, s.Allowed("/music/B.FLAC"))
	assert.False(t, s.Allowed("/music/cover.jpg"))
	assert.False(t, s.Allowed("/music/README"))
	assert.False(t, s.Allowed("/music/.mp3/notes"))
}
