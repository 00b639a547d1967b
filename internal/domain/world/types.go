package world

import "fmt"

// Location is a point in a named world.
type Location struct {
	WorldID string  `json:"world_id" yaml:"world_id"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Z       float64 `json:"z" yaml:"z"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%.1f,%.1f,%.1f)", l.WorldID, l.X, l.Y, l.Z)
}

// DistanceSq is the squared euclidean distance between two locations.
// Locations in different worlds are infinitely far apart for gameplay
// purposes; callers must check WorldID first.
func (l Location) DistanceSq(o Location) float64 {
	dx := l.X - o.X
	dy := l.Y - o.Y
	dz := l.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Offset returns l translated by (dx, dy, dz) in the same world.
func (l Location) Offset(dx, dy, dz float64) Location {
	return Location{WorldID: l.WorldID, X: l.X + dx, Y: l.Y + dy, Z: l.Z + dz}
}

// AgentInfo is the world runtime's view of one autonomous agent.
type AgentInfo struct {
	ID           string
	Name         string
	LinkTag      string // external user id the agent is bound to, "" if none
	Location     Location
	Health       float64
	Invulnerable bool
}

// Profession is an optional agent role applied when a linked agent is
// (re)claimed by its owner.
type Profession string

const (
	ProfessionNone      Profession = ""
	ProfessionNitwit    Profession = "nitwit"
	ProfessionFarmer    Profession = "farmer"
	ProfessionCleric    Profession = "cleric"
	ProfessionLibrarian Profession = "librarian"
)

// Weather states a world can be switched to.
type Weather string

const (
	WeatherClear   Weather = "clear"
	WeatherRain    Weather = "rain"
	WeatherThunder Weather = "thunder"
)
