package source

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Rejected describes a raw catalog entry that Normalize dropped.
type Rejected struct {
	Index  int
	Reason string
}

// Normalize decodes a raw catalog collection into sources.
//
// Entries may be bare source objects or association rows of the form
// {"source": {...}}. Null entries, non-objects, undecodable objects and
// records without an id or title are dropped and reported in the second
// return value. Order of the surviving entries is preserved.
func Normalize(raw []json.RawMessage) ([]Source, []Rejected) {
	sources := make([]Source, 0, len(raw))
	var rejected []Rejected

	for i, entry := range raw {
		src, reason := decodeEntry(entry)
		if reason != "" {
			rejected = append(rejected, Rejected{Index: i, Reason: reason})
			continue
		}
		sources = append(sources, src)
	}

	return sources, rejected
}

func decodeEntry(entry json.RawMessage) (Source, string) {
	data := bytes.TrimSpace(entry)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Source{}, "null entry"
	}
	if data[0] != '{' {
		return Source{}, "not an object"
	}

	// Association rows embed the record under "source".
	var row struct {
		Source json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(data, &row); err == nil && len(row.Source) > 0 {
		inner := bytes.TrimSpace(row.Source)
		if bytes.Equal(inner, []byte("null")) {
			return Source{}, "null entry"
		}
		if len(inner) == 0 || inner[0] != '{' {
			return Source{}, "not an object"
		}
		data = inner
	}

	var src Source
	if err := json.Unmarshal(data, &src); err != nil {
		return Source{}, "malformed: " + err.Error()
	}

	src.ID = strings.TrimSpace(src.ID)
	if src.ID == "" {
		return Source{}, "missing id"
	}
	if strings.TrimSpace(src.Title) == "" {
		return Source{}, "missing title"
	}

	src.Type, _ = ParseType(string(src.Type))
	return src, ""
}
