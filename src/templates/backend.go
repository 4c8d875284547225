package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend persists the category → body mapping.
//
// Save receives the full snapshot that should be durable once it returns
// and the category that changed ("" when seeding). Whole-file backends
// rewrite everything; keyed backends may upsert only the changed entry.
type Backend interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, snapshot map[string]string, changed string) error
	Close() error
}

// FileBackend stores the mapping as one JSON or YAML document and replaces
// the whole file on every save.
type FileBackend struct {
	Path  string
	Codec Codec
}

// NewFileBackend picks the codec from the file extension (.yaml/.yml → YAML,
// anything else → JSON).
func NewFileBackend(path string) *FileBackend {
	codec := Codec(JSONCodec{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		codec = YAMLCodec{}
	}
	return &FileBackend{Path: path, Codec: codec}
}

func (b *FileBackend) Load(_ context.Context) (map[string]string, error) {
	raw, err := os.ReadFile(b.Path)
	if os.IsNotExist(err) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	out, err := b.Codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.Path, err)
	}
	return out, nil
}

// Save writes to a temp file in the target directory, syncs it, then renames
// over the destination, so readers never see a partial document.
func (b *FileBackend) Save(_ context.Context, snapshot map[string]string, _ string) error {
	raw, err := b.Codec.Encode(snapshot)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, b.Path)
}

func (b *FileBackend) Close() error { return nil }
