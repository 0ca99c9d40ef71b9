package presentation

import (
	"fmt"

	"github.com/crimestat/crimestat/internal/core/domain"
)

const (
	ChartLabel       = "Crimes by Category"
	ChartBorderWidth = 1
	LegendMinHeight  = 500
	LegendPosition   = "bottom"
	RecapTitle       = "Statistics Recap"
	GoToMapLabel     = "GO TO MAP"
	GoToMapHref      = "/"
)

// Aggregate counts records per category. Order lists categories in the
// order they first appear.
func Aggregate(records []domain.CrimeRecord) domain.Summary {
	s := domain.Summary{
		Total:       len(records),
		PerCategory: make(map[string]int),
		Order:       []string{},
	}
	for _, r := range records {
		if _, seen := s.PerCategory[r.Category]; !seen {
			s.Order = append(s.Order, r.Category)
		}
		s.PerCategory[r.Category]++
	}
	return s
}

// BuildChart lays out a single-series bar chart. The legend shows only when
// the viewport is taller than LegendMinHeight.
func BuildChart(s domain.Summary, viewportHeight int) domain.ChartData {
	n := len(s.Order)
	cd := domain.ChartData{
		Labels: make([]string, 0, n),
		Keys:   make([]string, 0, n),
		Legend: domain.ChartLegend{Display: viewportHeight > LegendMinHeight, Position: LegendPosition},
	}
	ds := domain.ChartDataset{
		Label:           ChartLabel,
		Data:            make([]int, 0, n),
		BackgroundColor: make([]string, 0, n),
		BorderColor:     make([]string, 0, n),
		BorderWidth:     ChartBorderWidth,
	}
	for _, key := range s.Order {
		color := domain.CategoryColor(key, domain.ChartFallbackColor)
		cd.Labels = append(cd.Labels, domain.FormatCategory(key))
		cd.Keys = append(cd.Keys, key)
		ds.Data = append(ds.Data, s.PerCategory[key])
		ds.BackgroundColor = append(ds.BackgroundColor, color)
		ds.BorderColor = append(ds.BorderColor, color)
	}
	cd.Datasets = []domain.ChartDataset{ds}
	return cd
}

// BuildRecap renders the textual summary shown next to the chart.
func BuildRecap(cd domain.ChartData) domain.Recap {
	total := 0
	r := domain.Recap{Title: RecapTitle}
	if len(cd.Datasets) > 0 {
		data := cd.Datasets[0].Data
		for i, label := range cd.Labels {
			if i >= len(data) {
				break
			}
			total += data[i]
			r.Lines = append(r.Lines, fmt.Sprintf("%s: %d", label, data[i]))
		}
	}
	r.Total = fmt.Sprintf("Total Crimes: %d", total)
	return r
}

// NoAreaBanner is the persistent guidance shown when statistics are opened
// without an area.
func NoAreaBanner() domain.Banner {
	return domain.Banner{
		Message: domain.MessageNoAreaSelected,
		Action:  &domain.Action{Label: GoToMapLabel, Href: GoToMapHref},
	}
}
