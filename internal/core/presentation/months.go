package presentation

import (
	"fmt"
	"time"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// MonthOptions lists the twelve selectable months of domain.QueryYear.
func MonthOptions() []domain.MonthOption {
	out := make([]domain.MonthOption, 0, 12)
	for i := 1; i <= 12; i++ {
		m, _ := domain.MonthFromIndex(i)
		out = append(out, domain.MonthOption{
			Index: i,
			Value: m,
			Label: fmt.Sprintf("%s %d", time.Month(i), domain.QueryYear),
		})
	}
	return out
}
