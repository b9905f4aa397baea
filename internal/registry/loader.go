package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatd/internal/common/fsutil"
	"chatd/pkg/types"
)

type catalogFile struct {
	Models []types.ModelDescriptor `json:"models" yaml:"models" toml:"models"`
}

// LoadFile reads catalog entries from a YAML, JSON or TOML file of the
// form {models: [...]}.
func LoadFile(path string) ([]types.ModelDescriptor, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	case ".json":
		err = json.Unmarshal(b, &f)
	case ".toml":
		err = toml.Unmarshal(b, &f)
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", filepath.Ext(p))
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return f.Models, nil
}

// LoadDir scans a directory for *.gguf files. The id is the filename
// without extension, the url the absolute path, and the dtype "gguf" so
// every scanned file is loadable.
func LoadDir(dir string) ([]types.ModelDescriptor, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.ModelDescriptor
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		id := name[:len(name)-len(".gguf")]
		models = append(models, types.ModelDescriptor{
			ID:    id,
			Name:  id,
			URL:   filepath.Join(abs, name),
			Dtype: "gguf",
		})
	}
	return models, nil
}
