package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/crimestat/crimestat/internal/adapters/render"
	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/presentation"
	"github.com/crimestat/crimestat/internal/core/usecases"
)

// monthRequest is the body of POST /v1/sessions/:id/month.
type monthRequest struct {
	Month int `json:"month"`
}

// modeRequest is the body of POST /v1/sessions/:id/mode.
type modeRequest struct {
	Mode domain.RenderMode `json:"mode"`
}

// CreateSessionHandler starts a map session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v := deps.Maps.Create(c.UserContext())
		c.Location("/v1/sessions/" + v.ID)
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// GetSessionHandler returns the visible state of a session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := deps.Maps.Snapshot(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(v)
	}
}

// DeleteSessionHandler ends a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Maps.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ToggleDrawHandler flips the draw control.
func ToggleDrawHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := deps.Maps.ToggleDraw(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(v)
	}
}

// PointerClickHandler feeds a map click to the session.
func PointerClickHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.ClickInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid click body")
		}
		v, err := deps.Maps.PointerClick(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(v)
	}
}

// PointerMoveHandler moves the drawing tooltip.
func PointerMoveHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p domain.ScreenPoint
		if err := c.BodyParser(&p); err != nil {
			return errBadRequest(c, "invalid pointer body")
		}
		tip, err := deps.Maps.PointerMove(c.UserContext(), c.Params("id"), p)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(tip)
	}
}

// SelectMonthHandler changes the session month.
func SelectMonthHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req monthRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid month body")
		}
		v, err := deps.Maps.SelectMonth(c.UserContext(), c.Params("id"), req.Month)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(v)
	}
}

// RenderModeHandler switches between markers and heatmap.
func RenderModeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req modeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid mode body")
		}
		v, err := deps.Maps.SetRenderMode(c.UserContext(), c.Params("id"), req.Mode)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(v)
	}
}

// MarkersHandler returns the session's crime markers.
func MarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		markers, err := deps.Maps.Markers(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(markers)
	}
}

// HeatHandler returns the session's heat layer.
func HeatHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		layer, err := deps.Maps.Heat(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(layer)
	}
}

// HeatPNGHandler renders the heat layer over the drawn area.
func HeatPNGHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		id := c.Params("id")
		layer, err := deps.Maps.Heat(ctx, id)
		if err != nil {
			return errFromDomain(c, err)
		}
		var bounds domain.Bounds
		if poly, _, _, err := deps.Maps.Area(ctx, id); err == nil {
			bounds = domain.BoundsOf(poly.Points())
		}

		img, err := render.HeatmapPNG(layer, bounds, c.QueryInt("width"), c.QueryInt("height"))
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

// AreaGeoJSONHandler exports the drawn area as a GeoJSON feature.
func AreaGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		poly, month, n, err := deps.Maps.Area(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		data, err := presentation.AreaFeature(poly, month, n).MarshalJSON()
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// CrimesGeoJSONHandler exports the session's records as a feature collection.
func CrimesGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records, err := deps.Maps.Records(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		data, err := presentation.RecordsCollection(records).MarshalJSON()
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// HandoffHandler returns what the statistics view needs from the map.
func HandoffHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h, err := deps.Maps.Handoff(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(h)
	}
}
