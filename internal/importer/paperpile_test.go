package importer

import (
	"encoding/json"
	"testing"

	"github.com/matsen/folio/internal/source"
)

func TestFlexibleString_String(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string year", `"2026"`, "2026"},
		{"number year", `2026`, "2026"},
		{"null value", `null`, ""},
		{"padded month", `"08"`, "08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("UnmarshalJSON() error = %v", err)
			}
			if got := f.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlexibleString_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array", `[1,2,3]`},
		{"object", `{"key": "value"}`},
		{"bool", `true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			if err := json.Unmarshal([]byte(tt.input), &f); err == nil {
				t.Errorf("UnmarshalJSON() expected error for input %s", tt.input)
			}
		})
	}
}

func TestParsePaperpile_ValidEntry(t *testing.T) {
	data := []byte(`[{
		"_id": "abc123",
		"citekey": "Smith2026-ab",
		"pubtype": "JOUR",
		"doi": "10.1234/test",
		"title": "A Test Paper",
		"journal": "Nature",
		"url": ["https://example.org/paper"],
		"published": {"year": "2026", "month": "08", "day": 5},
		"author": [{"first": "John", "last": "Smith"}, {"first": "", "last": "Doe"}]
	}]`)

	got, errs := ParsePaperpile(data)
	if len(errs) != 0 {
		t.Fatalf("ParsePaperpile() errors = %v", errs)
	}
	if len(got) != 1 {
		t.Fatalf("ParsePaperpile() returned %d sources, want 1", len(got))
	}

	p := got[0]
	if source.Value(p.Title) != "A Test Paper" {
		t.Errorf("Title = %v", p.Title)
	}
	if p.Type == nil || *p.Type != source.TypeArticle {
		t.Errorf("Type = %v, want article", p.Type)
	}
	if source.Value(p.PublicationDate) != "2026-08-05" {
		t.Errorf("PublicationDate = %q, want 2026-08-05", source.Value(p.PublicationDate))
	}
	if source.Value(p.Publication) != "Nature" || source.Value(p.DOI) != "10.1234/test" {
		t.Errorf("Publication/DOI = %q/%q", source.Value(p.Publication), source.Value(p.DOI))
	}
	if source.Value(p.URL) != "https://example.org/paper" {
		t.Errorf("URL = %q", source.Value(p.URL))
	}
	if p.Authors == nil || len(*p.Authors) != 2 || (*p.Authors)[0] != "John Smith" || (*p.Authors)[1] != "Doe" {
		t.Errorf("Authors = %v", p.Authors)
	}
}

func TestParsePaperpile_Types(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  source.Type
	}{
		{"book", `{"title": "T", "pubtype": "BOOK"}`, source.TypeBook},
		{"conference", `{"title": "T", "pubtype": "conf"}`, source.TypePaper},
		{"unknown with journal", `{"title": "T", "pubtype": "XYZ", "journal": "J"}`, source.TypeArticle},
		{"unknown", `{"title": "T"}`, source.TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := ParsePaperpile([]byte("[" + tt.entry + "]"))
			if len(errs) != 0 || len(got) != 1 {
				t.Fatalf("ParsePaperpile() = %v, %v", got, errs)
			}
			if *got[0].Type != tt.want {
				t.Errorf("Type = %q, want %q", *got[0].Type, tt.want)
			}
		})
	}
}

func TestParsePaperpile_PublicationDate(t *testing.T) {
	tests := []struct {
		name      string
		published string
		want      string
	}{
		{"year only", `{"year": 1843}`, "1843"},
		{"year and month", `{"year": "1843", "month": 10}`, "1843-10"},
		{"bad month stops", `{"year": "1843", "month": "13", "day": "1"}`, "1843"},
		{"no year", `{"month": "10"}`, ""},
		{"garbage year", `{"year": "soon"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := ParsePaperpile([]byte(`[{"title": "T", "published": ` + tt.published + `}]`))
			if len(errs) != 0 || len(got) != 1 {
				t.Fatalf("ParsePaperpile() = %v, %v", got, errs)
			}
			if d := source.Value(got[0].PublicationDate); d != tt.want {
				t.Errorf("PublicationDate = %q, want %q", d, tt.want)
			}
		})
	}
}

func TestParsePaperpile_MissingTitle(t *testing.T) {
	data := []byte(`[{"citekey": "a"}, {"title": "Kept"}, {"citekey": "c", "title": "  "}]`)

	got, errs := ParsePaperpile(data)
	if len(got) != 1 || source.Value(got[0].Title) != "Kept" {
		t.Errorf("ParsePaperpile() sources = %v", got)
	}
	if len(errs) != 2 {
		t.Errorf("ParsePaperpile() errors = %v, want 2", errs)
	}
}

func TestParsePaperpile_InvalidJSON(t *testing.T) {
	got, errs := ParsePaperpile([]byte(`{not json`))
	if got != nil || len(errs) != 1 {
		t.Errorf("ParsePaperpile() = %v, %v", got, errs)
	}
}

func TestParsePaperpile_EmptyArray(t *testing.T) {
	got, errs := ParsePaperpile([]byte(`[]`))
	if len(got) != 0 || len(errs) != 0 {
		t.Errorf("ParsePaperpile() = %v, %v", got, errs)
	}
}
