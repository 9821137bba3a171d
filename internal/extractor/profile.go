package extractor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is the extractor configuration rendered for one ProfileKind.
type Profile struct {
	OutputFormat string      `yaml:"outputFormat"`
	RequireMbid  bool        `yaml:"requireMbid"`
	Indent       int         `yaml:"indent"`
	MergeValues  MergeValues `yaml:"mergeValues"`
}

// MergeValues is copied verbatim by the extractor into its output document.
type MergeValues struct {
	Metadata struct {
		Version struct {
			Client        string `yaml:"client"`
			ClientVersion string `yaml:"client_version"`
		} `yaml:"version"`
	} `yaml:"metadata"`
}

// NewProfile returns the profile for kind, tagging output with the client
// version so the server can tell submissions apart.
func NewProfile(kind ProfileKind, clientVersion string) Profile {
	p := Profile{
		OutputFormat: "json",
		RequireMbid:  kind == ProfileRecordings,
		Indent:       0,
	}
	p.MergeValues.Metadata.Version.Client = "abz"
	p.MergeValues.Metadata.Version.ClientVersion = clientVersion
	return p
}

// Marshal renders the profile as YAML.
func (p Profile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteProfile renders p to path, creating parent directories as needed.
func WriteProfile(path string, p Profile) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// ProfileSet resolves the profile file for each kind. Kinds without a
// configured file are rendered into a temporary directory that Close removes.
type ProfileSet struct {
	Paths  map[ProfileKind]string
	tmpDir string
}

// PrepareProfiles returns a ProfileSet honouring configured paths and
// rendering the rest. configured may omit kinds or map them to "".
func PrepareProfiles(configured map[ProfileKind]string, clientVersion string) (*ProfileSet, error) {
	set := &ProfileSet{Paths: make(map[ProfileKind]string, 2)}

	for _, kind := range []ProfileKind{ProfileRecordings, ProfileDatasets} {
		if path := configured[kind]; path != "" {
			if _, err := os.Stat(path); err != nil {
				set.Close()
				return nil, fmt.Errorf("profile %s: %w", kind, err)
			}
			set.Paths[kind] = path
			continue
		}

		if set.tmpDir == "" {
			dir, err := os.MkdirTemp("", "abz-profiles-")
			if err != nil {
				return nil, fmt.Errorf("create profile dir: %w", err)
			}
			set.tmpDir = dir
		}
		path := filepath.Join(set.tmpDir, string(kind)+".yaml")
		if err := WriteProfile(path, NewProfile(kind, clientVersion)); err != nil {
			set.Close()
			return nil, err
		}
		set.Paths[kind] = path
	}

	return set, nil
}

// Close removes rendered profiles. Configured profile files are left alone.
func (s *ProfileSet) Close() error {
	if s == nil || s.tmpDir == "" {
		return nil
	}
	err := os.RemoveAll(s.tmpDir)
	s.tmpDir = ""
	return err
}
