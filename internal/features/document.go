// Package features parses extractor output and extracts the recording
// identifier it carries.
package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	"github.com/google/uuid"
)

var (
	// ErrMalformedOutput is returned when extractor output is not a JSON object.
	ErrMalformedOutput = errors.New("malformed extractor output")

	// ErrNoValidIdentifier is returned when the document carries no
	// UUID-shaped recording identifier.
	ErrNoValidIdentifier = errors.New("no valid recording identifier")
)

// IdentifierTag is the tag holding recording identifiers. The extractor
// reports recording MBIDs under the track id name for historic reasons.
const IdentifierTag = "musicbrainz_trackid"

// identifierSchema accepts one identifier or a list of them.
const identifierSchema = `string | [...string]`

// Document is a validated extractor output document.
type Document struct {
	raw json.RawMessage
	tag json.RawMessage // nil when metadata.tags.<IdentifierTag> is absent
}

// Parse validates data as a feature document.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedOutput)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return nil, fmt.Errorf("%w: document is not a JSON object", ErrMalformedOutput)
	}

	return &Document{raw: json.RawMessage(data), tag: lookupTag(top)}, nil
}

// Load reads and parses the feature document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	return Parse(data)
}

// lookupTag walks metadata.tags.<IdentifierTag>. Any level that is missing or
// not an object yields nil.
func lookupTag(top map[string]json.RawMessage) json.RawMessage {
	var metadata map[string]json.RawMessage
	if err := json.Unmarshal(top["metadata"], &metadata); err != nil {
		return nil
	}
	var tags map[string]json.RawMessage
	if err := json.Unmarshal(metadata["tags"], &tags); err != nil {
		return nil
	}
	return tags[IdentifierTag]
}

// Bytes returns the document as produced by the extractor.
func (d *Document) Bytes() []byte {
	return d.raw
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.raw, nil
}

// Identifiers returns the raw identifier tag values in document order.
// A bare string is returned as a single-element slice.
func (d *Document) Identifiers() ([]string, error) {
	if d.tag == nil {
		return nil, fmt.Errorf("%w: tag %s not present", ErrNoValidIdentifier, IdentifierTag)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(identifierSchema, cue.Filename("identifier.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile identifier schema: %w", err)
	}

	expr, err := cuejson.Extract(IdentifierTag, d.tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoValidIdentifier, err)
	}
	value := schema.Unify(ctx.BuildExpr(expr))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%w: tag %s must be a string or list of strings: %v", ErrNoValidIdentifier, IdentifierTag, err)
	}

	switch value.Kind() {
	case cue.StringKind:
		s, err := value.String()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoValidIdentifier, err)
		}
		return []string{s}, nil
	case cue.ListKind:
		iter, err := value.List()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoValidIdentifier, err)
		}
		var ids []string
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrNoValidIdentifier, err)
			}
			ids = append(ids, s)
		}
		return ids, nil
	}
	return nil, fmt.Errorf("%w: unexpected %s value", ErrNoValidIdentifier, value.Kind())
}

// RecordingID returns the first identifier that parses as a UUID, in
// canonical hyphenated form.
func (d *Document) RecordingID() (string, error) {
	ids, err := d.Identifiers()
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil {
			return u.String(), nil
		}
	}
	return "", fmt.Errorf("%w: none of %q is a UUID", ErrNoValidIdentifier, ids)
}
