package model

import (
	"hash/fnv"
	"math"
)

// Point is a planar coordinate in kilometres.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Gazetteer maps location tokens to coordinates.
type Gazetteer map[Location]Point

// DefaultGazetteer covers the districts used by the incident generator.
func DefaultGazetteer() Gazetteer {
	return Gazetteer{
		"Downtown":        {X: 0, Y: 0},
		"Suburb_A":        {X: 6, Y: 4},
		"Industrial_Zone": {X: -5, Y: 3},
		"ResidentialArea": {X: 2, Y: -4},
		"Highway_Exit":    {X: 8, Y: -2},
	}
}

// Distance returns the distance in kilometres between two locations.
// Tokens missing from the gazetteer fall back to a deterministic pseudo
// distance in [0, 10) derived from their hashes.
func (g Gazetteer) Distance(a, b Location) float64 {
	if a == b {
		return 0
	}
	pa, okA := g[a]
	pb, okB := g[b]
	if okA && okB {
		return math.Hypot(pa.X-pb.X, pa.Y-pb.Y)
	}
	ha, hb := hashLocation(a), hashLocation(b)
	diff := int64(ha) - int64(hb)
	if diff < 0 {
		diff = -diff
	}
	return float64(diff % 10)
}

func hashLocation(l Location) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(l))
	return h.Sum32()
}
