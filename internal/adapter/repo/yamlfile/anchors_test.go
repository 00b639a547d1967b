package yamlfile

import (
	"context"
	"path/filepath"
	"testing"
)

func TestAnchorRepoRoundTrip(t *testing.T) {
	repo := NewAnchorRepo(filepath.Join(t.TempDir(), "anchors.yml"))
	ctx := context.Background()

	in := []string{"overworld:10:64:10", "overworld:-32:70:128", "nether:0:40:0"}
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("loaded %d keys, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("key %d = %q, want %q", i, out[i], in[i])
		}
	}
}

func TestAnchorRepoMissingFileIsEmpty(t *testing.T) {
	repo := NewAnchorRepo(filepath.Join(t.TempDir(), "absent.yml"))
	out, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("keys = %v, want none", out)
	}
}
