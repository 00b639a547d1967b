package npctask

import (
	"context"
	"errors"
	"testing"
)

type stubAnchorRepo struct {
	keys []string
	err  error
}

func (r *stubAnchorRepo) Load(ctx context.Context) ([]string, error) { return r.keys, r.err }
func (r *stubAnchorRepo) Save(ctx context.Context, keys []string) error {
	r.keys = keys
	return nil
}

func TestAnchorPickerSkipsMalformedKeys(t *testing.T) {
	p := &AnchorPicker{
		Repo:     &stubAnchorRepo{keys: []string{"garbage", "overworld:1:64:2", "also:bad"}},
		RandIntn: func(n int) int { return n - 1 },
	}
	a, ok, err := p.PickAnchor(context.Background())
	if err != nil || !ok {
		t.Fatalf("pick: %v %v", ok, err)
	}
	if a.WorldID != "overworld" || a.X != 1 || a.Y != 64 || a.Z != 2 {
		t.Errorf("anchor = %+v", a)
	}
}

func TestAnchorPickerEmptySet(t *testing.T) {
	p := &AnchorPicker{Repo: &stubAnchorRepo{}}
	if _, ok, err := p.PickAnchor(context.Background()); ok || err != nil {
		t.Fatalf("empty set: ok=%v err=%v", ok, err)
	}
}

func TestAnchorPickerLoadFailure(t *testing.T) {
	boom := errors.New("disk gone")
	p := &AnchorPicker{Repo: &stubAnchorRepo{err: boom}}
	if _, _, err := p.PickAnchor(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped load failure", err)
	}
}
