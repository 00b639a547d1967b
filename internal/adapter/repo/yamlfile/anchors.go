package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// AnchorRepo stores spawn-anchor keys ("world:x:y:z") as a YAML list.
type AnchorRepo struct {
	path string
}

func NewAnchorRepo(path string) *AnchorRepo {
	return &AnchorRepo{path: path}
}

type anchorFile struct {
	Anchors []string `yaml:"anchors"`
}

func (r *AnchorRepo) Load(ctx context.Context) ([]string, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read anchors: %w", err)
	}
	var f anchorFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse anchors: %w", err)
	}
	return f.Anchors, nil
}

func (r *AnchorRepo) Save(ctx context.Context, keys []string) error {
	raw, err := yaml.Marshal(anchorFile{Anchors: keys})
	if err != nil {
		return fmt.Errorf("encode anchors: %w", err)
	}
	return writeAtomic(r.path, raw)
}
