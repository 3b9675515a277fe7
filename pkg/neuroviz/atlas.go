// Package neuroviz prepares engine output for 3D visualization clients. It
// owns a normalized coordinate atlas for the supported brain regions and
// turns temporal sequences and cascade results into plot-ready payloads.
package neuroviz

import (
	"github.com/neurosim-server/internal/domain"
)

// MatchThreshold is the maximum Euclidean distance at which an arbitrary
// coordinate still resolves to a named region.
const MatchThreshold = 0.3

// defaultCoordinates places each region in a normalized head-centered frame:
// X lateral, Y anterior-posterior, Z inferior-superior, all roughly [-1, 1].
// Bilateral structures get a single representative right-hemisphere point.
func defaultCoordinates() map[domain.BrainRegion]domain.Coordinate3D {
	return map[domain.BrainRegion]domain.Coordinate3D{
		domain.PrefrontalCortex:     {X: 0.0, Y: 0.75, Z: 0.45},
		domain.AnteriorCingulate:    {X: 0.0, Y: 0.45, Z: 0.4},
		domain.Amygdala:             {X: 0.25, Y: 0.05, Z: -0.25},
		domain.Hippocampus:          {X: 0.3, Y: -0.2, Z: -0.2},
		domain.Hypothalamus:         {X: 0.0, Y: 0.05, Z: -0.15},
		domain.Thalamus:             {X: 0.0, Y: -0.05, Z: 0.1},
		domain.Striatum:             {X: 0.2, Y: 0.25, Z: 0.05},
		domain.NucleusAccumbens:     {X: 0.1, Y: 0.3, Z: -0.1},
		domain.RapheNuclei:          {X: 0.0, Y: -0.45, Z: -0.3},
		domain.VentralTegmentalArea: {X: 0.0, Y: -0.3, Z: -0.25},
		domain.LocusCoeruleus:       {X: 0.1, Y: -0.55, Z: -0.25},
		domain.SubstantiaNigra:      {X: 0.1, Y: -0.25, Z: -0.2},
		domain.BasalForebrain:       {X: 0.05, Y: 0.25, Z: -0.15},
	}
}
