package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// parseTOML decodes a TOML document into a JSON object. Keys come out
// sorted since the table order is not kept by the decoder.
func parseTOML(source string, data []byte) ([]byte, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		le := &Error{Kind: KindParse, Path: source, Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			le.Line, le.Column = de.Position()
		}
		return nil, le
	}
	if doc == nil {
		doc = map[string]any{}
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, &Error{Kind: KindParse, Path: source, Err: err}
	}
	return out, nil
}

// parseYAML decodes a YAML document into JSON, walking the node tree so
// mapping keys keep their file order. An empty document becomes {}.
func parseYAML(source string, data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &Error{Kind: KindParse, Path: source, Err: err}
	}
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return []byte(`{}`), nil
	}

	var buf bytes.Buffer
	if err := writeYAMLNode(&buf, &root); err != nil {
		le := &Error{Kind: KindParse, Path: source, Err: err}
		var ne *nodeError
		if errors.As(err, &ne) {
			le.Line, le.Column = ne.line, ne.column
		}
		return nil, le
	}
	return buf.Bytes(), nil
}

type nodeError struct {
	line, column int
	msg          string
}

func (e *nodeError) Error() string { return e.msg }

func writeYAMLNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLNode(buf, n.Content[0])

	case yaml.AliasNode:
		return writeYAMLNode(buf, n.Alias)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return &nodeError{line: k.Line, column: k.Column, msg: "mapping keys must be scalars"}
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k.Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeYAMLNode(buf, v); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNode(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return &nodeError{line: n.Line, column: n.Column, msg: err.Error()}
		}
		raw, err := json.Marshal(v)
		if err != nil {
			// Timestamps and other tagged scalars fall back to their text.
			raw, err = json.Marshal(n.Value)
			if err != nil {
				return err
			}
		}
		buf.Write(raw)
		return nil

	default:
		return &nodeError{line: n.Line, column: n.Column, msg: fmt.Sprintf("unsupported YAML node kind %d", n.Kind)}
	}
}
