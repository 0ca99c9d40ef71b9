package presentation

import (
	"github.com/crimestat/crimestat/internal/core/domain"
)

// BuildMarkers returns one marker per record whose coordinates parse.
// Records with unusable coordinates are skipped.
func BuildMarkers(records []domain.CrimeRecord) []domain.Marker {
	out := make([]domain.Marker, 0, len(records))
	for _, r := range records {
		pos, err := r.Location.Point()
		if err != nil {
			continue
		}
		color := domain.CategoryColor(r.Category, domain.MarkerFallbackColor)
		hue := Hue(color)
		m := domain.Marker{
			ID:       r.ID,
			Position: pos,
			Category: r.Category,
			Color:    color,
			Hue:      hue,
			Tint:     TintBucket(hue),
			Popup:    domain.Popup{Category: domain.FormatCategory(r.Category)},
		}
		if r.OutcomeStatus != nil {
			m.Popup.Outcome = r.OutcomeStatus.Category
			m.Popup.OutcomeDate = r.OutcomeStatus.Date
		}
		out = append(out, m)
	}
	return out
}
