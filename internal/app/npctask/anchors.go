package npctask

import (
	"context"
	"log"

	"chatcraft/internal/app/ports"
	"chatcraft/internal/domain/world"
)

// AnchorPicker is the standard AnchorSource: it draws a random anchor from
// the configured key set, skipping keys that no longer parse.
type AnchorPicker struct {
	Repo ports.AnchorRepository

	RandIntn func(n int) int // nil for math/rand
}

func (p *AnchorPicker) PickAnchor(ctx context.Context) (world.Anchor, bool, error) {
	keys, err := p.Repo.Load(ctx)
	if err != nil {
		return world.Anchor{}, false, err
	}
	anchors := make([]world.Anchor, 0, len(keys))
	for _, key := range keys {
		a, err := world.ParseAnchor(key)
		if err != nil {
			log.Printf("anchors: skipping %q: %v", key, err)
			continue
		}
		anchors = append(anchors, a)
	}
	if len(anchors) == 0 {
		return world.Anchor{}, false, nil
	}
	intn := p.RandIntn
	if intn == nil {
		intn = randIntn
	}
	return anchors[intn(len(anchors))], true, nil
}
