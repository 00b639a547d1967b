// Package yamlfile persists the link store and the spawn-anchor set as YAML
// documents on disk. Documents are small and rewritten whole; writes go
// through a temp file and rename so a crash never leaves a torn file.
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"chatcraft/internal/app/ports"
)

// LinkRepo stores identity links in a single YAML file. The current layout
// nests records under a top-level `users:` map; files written by older
// releases put the same map at the document root, and both are readable.
// Record order in the file is meaningful and preserved.
type LinkRepo struct {
	path string
}

func NewLinkRepo(path string) *LinkRepo {
	return &LinkRepo{path: path}
}

type rawLink struct {
	UserName  string    `yaml:"user_name"`
	AgentUUID string    `yaml:"agent_uuid"`
	WorldID   string    `yaml:"world_id"`
	X         float64   `yaml:"x"`
	Y         float64   `yaml:"y"`
	Z         float64   `yaml:"z"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

func (r *LinkRepo) Load(ctx context.Context) ([]ports.LinkRecord, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read links: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse links: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse links: document is not a mapping")
	}

	// Nested layout: the whole document is `users: {...}`. Anything else is
	// the legacy flat layout with records at the root.
	records := root
	if m := mappingValue(root, "users"); m != nil {
		records = m
	}
	return decodeLinkMapping(records)
}

// mappingValue returns the mapping node stored under key, or nil.
func mappingValue(root *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key && root.Content[i+1].Kind == yaml.MappingNode {
			return root.Content[i+1]
		}
	}
	return nil
}

func decodeLinkMapping(m *yaml.Node) ([]ports.LinkRecord, error) {
	var out []ports.LinkRecord
	for i := 0; i+1 < len(m.Content); i += 2 {
		keyNode, valNode := m.Content[i], m.Content[i+1]
		var rl rawLink
		if err := valNode.Decode(&rl); err != nil {
			return nil, fmt.Errorf("parse link %q: %w", keyNode.Value, err)
		}
		out = append(out, ports.LinkRecord{
			UserID:    keyNode.Value,
			UserName:  rl.UserName,
			AgentUUID: rl.AgentUUID,
			WorldID:   rl.WorldID,
			X:         rl.X,
			Y:         rl.Y,
			Z:         rl.Z,
			UpdatedAt: rl.UpdatedAt,
		})
	}
	return out, nil
}

func (r *LinkRepo) Save(ctx context.Context, records []ports.LinkRecord) error {
	users := &yaml.Node{Kind: yaml.MappingNode}
	for _, rec := range records {
		var val yaml.Node
		if err := val.Encode(rawLink{
			UserName:  rec.UserName,
			AgentUUID: rec.AgentUUID,
			WorldID:   rec.WorldID,
			X:         rec.X,
			Y:         rec.Y,
			Z:         rec.Z,
			UpdatedAt: rec.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("encode link %s: %w", rec.UserID, err)
		}
		users.Content = append(users.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: rec.UserID, Style: yaml.DoubleQuotedStyle},
			&val)
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "users"},
		users,
	}}

	raw, err := yaml.Marshal(root)
	if err != nil {
		return fmt.Errorf("encode links: %w", err)
	}
	return writeAtomic(r.path, raw)
}

// writeAtomic replaces path with data via a same-directory temp file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
