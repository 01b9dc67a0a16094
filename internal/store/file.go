package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FileStore reads documents from a YAML file laid out as
// collection -> document -> data. The file is re-read on every lookup.
type FileStore struct {
	path string
}

// NewFileStore creates a store over the YAML file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Close implements Store.
func (f *FileStore) Close() error { return nil }

// GetDocument implements Store.
func (f *FileStore) GetDocument(_ context.Context, collection, document string) (json.RawMessage, error) {
	root, err := readYAML(f.path)
	if err != nil {
		return nil, err
	}
	col := mappingValue(root, collection)
	if col == nil {
		return nil, notFound(collection, document)
	}
	doc := mappingValue(col, document)
	if doc == nil {
		return nil, notFound(collection, document)
	}
	data, err := yamlToJSON(doc)
	if err != nil {
		return nil, eris.Wrapf(err, "file store: convert %s/%s", collection, document)
	}
	return data, nil
}

// LoadDocuments returns every document in the YAML file at path, in file
// order.
func LoadDocuments(path string) ([]Document, error) {
	root, err := readYAML(path)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, eris.Errorf("file store: %s: top level must be a mapping of collections", path)
	}

	var docs []Document
	for i := 0; i+1 < len(root.Content); i += 2 {
		collection, col := root.Content[i].Value, resolveAlias(root.Content[i+1])
		if col.Kind != yaml.MappingNode {
			return nil, eris.Errorf("file store: %s: collection %q must be a mapping of documents", path, collection)
		}
		for j := 0; j+1 < len(col.Content); j += 2 {
			data, err := yamlToJSON(col.Content[j+1])
			if err != nil {
				return nil, eris.Wrapf(err, "file store: convert %s/%s", collection, col.Content[j].Value)
			}
			docs = append(docs, Document{Collection: collection, Name: col.Content[j].Value, Data: data})
		}
	}
	return docs, nil
}

func readYAML(path string) (*yaml.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "file store: read %s", path)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrapf(err, "file store: parse %s", path)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	return resolveAlias(doc.Content[0]), nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return resolveAlias(n.Content[i+1])
		}
	}
	return nil
}

// yamlToJSON converts a YAML node to JSON, keeping mapping key order.
func yamlToJSON(n *yaml.Node) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	n = resolveAlias(n)
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0])
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return writeScalar(buf, n)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, n *yaml.Node) error {
	// Timestamps stay as written rather than being reformatted.
	if n.ShortTag() == "!!timestamp" {
		return marshalInto(buf, n.Value)
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	if err := marshalInto(buf, v); err != nil {
		// NaN and infinities have no JSON form.
		return marshalInto(buf, n.Value)
	}
	return nil
}

func marshalInto(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
