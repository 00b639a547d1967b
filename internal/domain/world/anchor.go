package world

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Anchor is a designated spawn point. Its string form "<world>:<x>:<y>:<z>"
// is the on-disk key shape and must round-trip exactly.
type Anchor struct {
	WorldID string
	X, Y, Z int
}

func (a Anchor) Key() string {
	return fmt.Sprintf("%s:%d:%d:%d", a.WorldID, a.X, a.Y, a.Z)
}

func (a Anchor) Location() Location {
	return Location{WorldID: a.WorldID, X: float64(a.X) + 0.5, Y: float64(a.Y), Z: float64(a.Z) + 0.5}
}

// AnchorFromLocation snaps a location down to whole-block coordinates.
func AnchorFromLocation(l Location) Anchor {
	return Anchor{
		WorldID: l.WorldID,
		X:       int(math.Floor(l.X)),
		Y:       int(math.Floor(l.Y)),
		Z:       int(math.Floor(l.Z)),
	}
}

// ParseAnchor parses the "<world>:<x>:<y>:<z>" key shape. World ids may not
// contain ':'; the three trailing fields must be integers.
func ParseAnchor(key string) (Anchor, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 {
		return Anchor{}, fmt.Errorf("anchor key %q: want 4 ':'-separated fields, got %d", key, len(parts))
	}
	if strings.TrimSpace(parts[0]) == "" {
		return Anchor{}, fmt.Errorf("anchor key %q: empty world id", key)
	}
	nums := [3]int{}
	for i, p := range parts[1:] {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Anchor{}, fmt.Errorf("anchor key %q: field %d: %w", key, i+1, err)
		}
		nums[i] = n
	}
	return Anchor{WorldID: parts[0], X: nums[0], Y: nums[1], Z: nums[2]}, nil
}
