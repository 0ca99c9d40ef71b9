package presentation

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// AreaFeature exports a drawn area as a GeoJSON polygon feature. Points are
// written lon/lat as GeoJSON requires.
func AreaFeature(p domain.Polygon, month domain.Month, total int) *geojson.Feature {
	pts := p.Points()
	ring := make(orb.Ring, 0, len(pts))
	for _, pt := range pts {
		ring = append(ring, orb.Point{pt.Lon, pt.Lat})
	}
	f := geojson.NewFeature(orb.Polygon{ring})
	f.Properties["poly"] = p.Encode()
	if month != "" {
		f.Properties["month"] = string(month)
	}
	f.Properties["crimes"] = total
	return f
}

// RecordsCollection exports records as GeoJSON points carrying the category
// and its marker colour.
func RecordsCollection(records []domain.CrimeRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		pos, err := r.Location.Point()
		if err != nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{pos.Lon, pos.Lat})
		f.ID = r.ID
		f.Properties["category"] = r.Category
		f.Properties["color"] = domain.CategoryColor(r.Category, domain.MarkerFallbackColor)
		if r.Location.Street != nil {
			f.Properties["street"] = r.Location.Street.Name
		}
		fc.Append(f)
	}
	return fc
}
