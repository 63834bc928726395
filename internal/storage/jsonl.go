// Package storage handles data persistence in SQLite and JSONL formats.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matsen/folio/internal/source"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadSourcesJSONL reads all sources from a JSONL file. A missing file
// reads as empty.
func ReadSourcesJSONL(path string) ([]source.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening sources file: %w", err)
	}
	defer f.Close()

	return DecodeSourcesJSONL(f)
}

// DecodeSourcesJSONL reads one source per line from r. Blank lines are
// skipped; a line that fails to parse is an error.
func DecodeSourcesJSONL(r io.Reader) ([]source.Source, error) {
	var srcs []source.Source
	scanner := bufio.NewScanner(r)

	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var src source.Source
		if err := json.Unmarshal(line, &src); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if src.ID == "" {
			return nil, fmt.Errorf("line %d: source has no id", lineNum)
		}
		srcs = append(srcs, src)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}

	return srcs, nil
}

// EncodeSourcesJSONL writes one source per line to w.
func EncodeSourcesJSONL(w io.Writer, srcs []source.Source) error {
	bw := bufio.NewWriter(w)
	for i, src := range srcs {
		data, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("encoding source %d: %w", i, err)
		}
		if _, err := bw.Write(data); err != nil {
			return fmt.Errorf("writing source %d: %w", i, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return bw.Flush()
}

// WriteSourcesJSONL writes all sources to a JSONL file, replacing existing content.
func WriteSourcesJSONL(path string, srcs []source.Source) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating sources file: %w", err)
	}
	defer f.Close()

	return EncodeSourcesJSONL(f, srcs)
}

// AppendSourceJSONL adds a source to the end of a JSONL file.
func AppendSourceJSONL(path string, src source.Source) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening sources file for append: %w", err)
	}
	defer f.Close()

	return EncodeSourcesJSONL(f, []source.Source{src})
}

// FindSourceByID searches for a source by ID.
func FindSourceByID(srcs []source.Source, id string) (int, bool) {
	for i, src := range srcs {
		if src.ID == id {
			return i, true
		}
	}
	return -1, false
}
