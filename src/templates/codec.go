package templates

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Codec converts the persisted mapping to and from bytes. Encoders must be
// deterministic so that re-saving an unchanged store is byte-identical.
type Codec interface {
	Encode(map[string]string) ([]byte, error)
	Decode([]byte) (map[string]string, error)
}

// JSONCodec writes a single object with sorted keys and 4-space indent.
type JSONCodec struct{}

func (JSONCodec) Encode(m map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(nonNil(m)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (JSONCodec) Decode(raw []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// YAMLCodec writes a flat YAML mapping.
type YAMLCodec struct{}

func (YAMLCodec) Encode(m map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(nonNil(m)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Decode(raw []byte) (map[string]string, error) {
	out := map[string]string{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
