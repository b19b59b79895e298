// Package loader reads settings files into JSON.
//
// JSON files are validated and returned as is. TOML and YAML files are
// converted to JSON so the rest of the system only ever sees one format.
// The format is picked from the file extension; anything unrecognised is
// treated as JSON.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// Format is a settings source format.
type Format int

const (
	// FormatJSON is plain JSON.
	FormatJSON Format = iota
	// FormatTOML is TOML, converted to a JSON object.
	FormatTOML
	// FormatYAML is YAML, converted to JSON.
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatOf picks a format from the extension of path.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ReadFile reads the settings file at path and returns it as JSON.
// All failures are *Error values.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindCannotOpen, Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &Error{Kind: KindFileHandle, Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &Error{Kind: KindFileHandle, Path: path, Err: errors.New("is a directory")}
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, &Error{Kind: KindSeek, Path: path, Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, &Error{Kind: KindSeek, Path: path, Err: err}
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, &Error{Kind: KindRead, Path: path, Err: err}
	}

	return Parse(path, data)
}

// Parse converts data read from source into JSON, using the extension of
// source to pick the format.
func Parse(source string, data []byte) ([]byte, error) {
	return ParseFormat(source, FormatOf(source), data)
}

// ParseFormat converts data in the given format into JSON.
func ParseFormat(source string, format Format, data []byte) ([]byte, error) {
	switch format {
	case FormatTOML:
		return parseTOML(source, data)
	case FormatYAML:
		return parseYAML(source, data)
	default:
		return parseJSON(source, data)
	}
}

func parseJSON(source string, data []byte) ([]byte, error) {
	if !gjson.ValidBytes(data) {
		return nil, &Error{Kind: KindParse, Path: source, Err: fmt.Errorf("invalid JSON")}
	}
	return data, nil
}
