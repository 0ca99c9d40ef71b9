package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/crimestat/crimestat/internal/adapters/render"
	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/presentation"
)

// Category is an entry of GET /v1/categories.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// trendRequest is the body of POST /v1/trends.
type trendRequest struct {
	Poly string `json:"poly"`
}

// StatisticsHandler computes the statistics page for ?poly=&date=.
// legend_height is the viewport height the legend toggle depends on.
func StatisticsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := deps.Statistics.Compute(c.UserContext(), c.Query("poly"), c.Query("date"), c.QueryInt("legend_height"))
		if err != nil {
			return statisticsError(c, v, err)
		}
		return c.JSON(v)
	}
}

// StatisticsChartHandler renders the statistics bar chart as a PNG.
func StatisticsChartHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		height := c.QueryInt("height", render.DefaultHeight)
		v, err := deps.Statistics.Compute(c.UserContext(), c.Query("poly"), c.Query("date"), height)
		if err != nil {
			return statisticsError(c, v, err)
		}

		img, err := render.BarChartPNG(v.Chart, c.QueryInt("width"), height)
		if errors.Is(err, render.ErrNoData) {
			return errNotFound(c, "no crimes to render")
		}
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(img)
	}
}

// CategoriesHandler lists the known crime categories and their colours.
func CategoriesHandler() fiber.Handler {
	keys := domain.CategoryKeys()
	out := make([]Category, 0, len(keys))
	for _, k := range keys {
		out = append(out, Category{
			Key:   k,
			Label: domain.FormatCategory(k),
			Color: domain.CategoryColor(k, domain.MarkerFallbackColor),
		})
	}
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(out)
	}
}

// MonthsHandler lists the month dropdown options.
func MonthsHandler() fiber.Handler {
	months := presentation.MonthOptions()
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(months)
	}
}

// RecentQueriesHandler pages through the fetch-outcome log.
func RecentQueriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.QueryLog == nil {
			return errUnavailable(c, "query log not available")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		entries, err := deps.QueryLog.Recent(c.UserContext(), limit, offset)
		if err != nil {
			return errFromDomain(c, err)
		}
		if entries == nil {
			entries = []domain.QueryLogEntry{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Count: len(entries), HasMore: len(entries) == limit}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: entries, Pagination: pg})
	}
}

// StartTrendHandler launches a 12-month trend run for an area.
func StartTrendHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req trendRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid trend body")
		}
		id, err := deps.Trends.Start(c.UserContext(), req.Poly)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/trends/" + id)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id, "status": "running"})
	}
}

// GetTrendHandler returns a trend, or 202 while it is still running.
func GetTrendHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		result, done, err := deps.Trends.Result(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		if !done {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id, "status": "running"})
		}
		return c.JSON(result)
	}
}
