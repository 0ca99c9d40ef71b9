package presentation

import "github.com/crimestat/crimestat/internal/core/domain"

// DefaultHeatRadius is the per-point radius of the heat layer.
const DefaultHeatRadius = 25

// BuildHeat builds a fresh heat layer with unit intensity per record.
// The caller passes a generation that differs from every earlier layer.
func BuildHeat(records []domain.CrimeRecord, generation uint64, radius int) domain.HeatLayer {
	if radius <= 0 {
		radius = DefaultHeatRadius
	}
	layer := domain.HeatLayer{
		Generation: generation,
		Radius:     radius,
		Points:     make([]domain.HeatPoint, 0, len(records)),
	}
	for _, r := range records {
		p, err := r.Location.Point()
		if err != nil {
			continue
		}
		layer.Points = append(layer.Points, domain.HeatPoint{Lat: p.Lat, Lon: p.Lon, Intensity: 1})
	}
	return layer
}
