package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalSnapshot encodes a snapshot as {"<source_id>": [{"id","title"}...]}
// indented by two spaces. Keys come out sorted, titles are not HTML-escaped
// and nil record lists are written as [].
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	out := make(map[string][]Record, len(s))
	for id, recs := range s {
		if recs == nil {
			recs = []Record{}
		}
		out[id] = recs
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot decodes the format written by MarshalSnapshot.
// Empty input and a JSON null decode to an empty snapshot.
func UnmarshalSnapshot(b []byte) (Snapshot, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Snapshot{}, nil
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %w", ErrInvalidInput, err)
	}
	if s == nil {
		s = Snapshot{}
	}
	return s, nil
}
