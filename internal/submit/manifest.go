package submit

import "strconv"

// Manifest describes a dataset: named classes, each listing the identifiers
// of its submitted items.
type Manifest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Public      string  `json:"public"` // "true" or "false"
	Classes     []Class `json:"classes"`
}

// Class is one dataset class.
type Class struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Recordings  []string `json:"recordings"`
}

// NewManifest returns an empty public manifest named name.
func NewManifest(name string) *Manifest {
	return &Manifest{
		Name:    name,
		Public:  strconv.FormatBool(true),
		Classes: []Class{},
	}
}

// SetPublic sets the manifest visibility.
func (m *Manifest) SetPublic(public bool) {
	m.Public = strconv.FormatBool(public)
}

// AddClass appends c unless it has no recordings. It reports whether the
// class was added.
func (m *Manifest) AddClass(c Class) bool {
	if len(c.Recordings) == 0 {
		return false
	}
	m.Classes = append(m.Classes, c)
	return true
}

// HasClass reports whether a class named name was added.
func (m *Manifest) HasClass(name string) bool {
	for _, c := range m.Classes {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ItemCount returns the number of recordings across all classes.
func (m *Manifest) ItemCount() int {
	n := 0
	for _, c := range m.Classes {
		n += len(c.Recordings)
	}
	return n
}
