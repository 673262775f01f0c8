package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// document is the on-disk form of a Schema. Column types are parsed leniently
// so that "int" or "string" are accepted.
type document struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Tables   []struct {
		Name    string `json:"name"`
		Columns []struct {
			Name    string `json:"name"`
			Type    string `json:"type"`
			NotNull bool   `json:"notNull"`
			Unique  bool   `json:"unique"`
		} `json:"columns"`
	} `json:"tables"`
}

// LoadFile reads a JSON schema document from path.
func LoadFile(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return Schema{}, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return Schema{}, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Decode parses a JSON schema document. It checks types and required fields
// but leaves name and uniqueness validation to NewRegistry.
func Decode(r io.Reader) (Schema, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Schema{}, fmt.Errorf("decode: %w", err)
	}

	if doc.Name == "" {
		return Schema{}, fmt.Errorf("missing store name")
	}
	if doc.Version < 1 {
		return Schema{}, fmt.Errorf("version must be >= 1, got %d", doc.Version)
	}
	if len(doc.Tables) == 0 {
		return Schema{}, fmt.Errorf("no tables defined")
	}

	s := Schema{
		Provider: doc.Provider,
		Name:     doc.Name,
		Version:  doc.Version,
		Tables:   make([]Table, 0, len(doc.Tables)),
	}
	for _, dt := range doc.Tables {
		t := Table{Name: dt.Name}
		for _, dc := range dt.Columns {
			typ, err := ParseColumnType(dc.Type)
			if err != nil {
				return Schema{}, fmt.Errorf("table %s column %s: %w", dt.Name, dc.Name, err)
			}
			t.Columns = append(t.Columns, Column{
				Name:    dc.Name,
				Type:    typ,
				NotNull: dc.NotNull,
				Unique:  dc.Unique,
			})
		}
		s.Tables = append(s.Tables, t)
	}

	return s, nil
}
