// Package config loads the settings shared by every abz command.
//
// Settings are layered, later layers winning:
//   - built-in defaults (Default)
//   - a YAML settings file (strict: unknown keys are rejected)
//   - a .env file and the process environment (ABZ_* variables)
//   - command-line flags, applied by the CLI
//
// A Settings value is built once per run and passed explicitly to the
// components that need it; nothing here is global.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvHost      = "ABZ_HOST"
	EnvExtractor = "ABZ_EXTRACTOR"
	EnvDatabase  = "ABZ_DB"
)

// DefaultExtensions is the audio extension allow-list used when the settings
// file does not provide one.
var DefaultExtensions = []string{
	"mp3", "mp2", "m2a", "ogg", "oga", "flac", "mp4", "m4a", "m4r",
	"m4b", "m4p", "aac", "wma", "asf", "mpc", "wv", "spx", "tta",
	"3g2", "aif", "aiff", "ape",
}

// Settings holds everything a run needs to know about its environment.
type Settings struct {
	// Host is the submission server, without scheme (e.g. "acousticbrainz.org").
	Host string `yaml:"host"`

	// Extractor is the feature extractor executable (path or name on $PATH).
	Extractor string `yaml:"extractor"`

	// Extensions is the case-insensitive allow-list of file extensions,
	// stored lower-case without the leading dot.
	Extensions []string `yaml:"extensions"`

	// Database is the path of the processed-file ledger.
	Database string `yaml:"database"`

	// Profiles are optional extractor profile files. Empty paths are
	// rendered into a temporary directory for the duration of a run.
	Profiles ProfilePaths `yaml:"profiles,omitempty"`
}

// ProfilePaths names the profile file used for each extraction mode.
type ProfilePaths struct {
	Recordings string `yaml:"recordings,omitempty"`
	Datasets   string `yaml:"datasets,omitempty"`
}

// Default returns settings matching the historic client defaults.
func Default() *Settings {
	return &Settings{
		Host:       "acousticbrainz.org",
		Extractor:  "streaming_extractor_music",
		Extensions: append([]string(nil), DefaultExtensions...),
		Database:   defaultDatabasePath(),
	}
}

// DefaultConfigPath returns the settings file consulted when --config is not
// given. The file is optional.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "abz", "config.yaml")
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "filelog.db"
	}
	return filepath.Join(dir, "abz", "filelog.db")
}

// Load returns Default() overlaid with the YAML file at path.
// If required is false a missing file is not an error.
func Load(path string, required bool) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	s.Extensions = normalizeExtensions(s.Extensions)
	return s, nil
}

// ApplyEnv overlays ABZ_* variables from the given .env files (missing files
// are skipped) and then from the process environment.
func (s *Settings) ApplyEnv(envFiles ...string) error {
	vars := map[string]string{}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		fileVars, err := godotenv.Read(f)
		if err != nil {
			return fmt.Errorf("failed to read env file %s: %w", f, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for _, key := range []string{EnvHost, EnvExtractor, EnvDatabase} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}

	if v := vars[EnvHost]; v != "" {
		s.Host = v
	}
	if v := vars[EnvExtractor]; v != "" {
		s.Extractor = v
	}
	if v := vars[EnvDatabase]; v != "" {
		s.Database = v
	}
	return nil
}

// Validate reports the first setting that makes a run impossible.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Host) == "" {
		return fmt.Errorf("host is required")
	}
	if strings.Contains(s.Host, "://") {
		return fmt.Errorf("host %q must not include a scheme", s.Host)
	}
	if strings.TrimSpace(s.Extractor) == "" {
		return fmt.Errorf("extractor is required")
	}
	if s.Database == "" {
		return fmt.Errorf("database is required")
	}
	if len(s.Extensions) == 0 {
		return fmt.Errorf("extensions list must be non-empty")
	}
	return nil
}

// Allowed reports whether path has an extension in the allow-list.
func (s *Settings) Allowed(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	for _, e := range s.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
