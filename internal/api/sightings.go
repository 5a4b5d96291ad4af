package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/joyvchen/birdride/internal/aggregator"
	"github.com/joyvchen/birdride/internal/errors"
	"github.com/joyvchen/birdride/internal/route"
)

// SightingsResponse is the payload of GET /api/v1/sightings.
type SightingsResponse struct {
	Species    []aggregator.SpeciesSummary `json:"species"`
	Stats      aggregator.Stats            `json:"stats"`
	Incomplete bool                        `json:"incomplete"`
}

// GetSightings aggregates recent sightings along the route given in the
// "path" query parameter.
//
// Query parameters:
//
//	path         required, "lat,lon;lat,lon;..." waypoints
//	days         lookback window in days
//	radius_km    search radius around each sample point
//	max_points   sample point cap
//	within_miles drop species farther than this from the route; defaults to
//	             the configured route.proximitymiles when set
//	order        "recency" (default) or "rarity"
func (c *Controller) GetSightings(ctx echo.Context) error {
	pathParam := ctx.QueryParam("path")
	if pathParam == "" {
		return c.HandleError(ctx, errors.NewStd("missing required parameter: path"),
			"path parameter is required", http.StatusBadRequest)
	}

	r, err := route.ParsePath(pathParam)
	if err != nil {
		return c.HandleError(ctx, err, "invalid path parameter", http.StatusBadRequest)
	}

	opts := aggregator.Options{
		BackDays:  c.settings.Route.BackDays,
		RadiusKm:  c.settings.Route.RadiusKm,
		MaxPoints: c.settings.Route.MaxPoints,
	}

	if v := ctx.QueryParam("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return c.HandleError(ctx, err, "invalid days parameter", http.StatusBadRequest)
		}
		opts.BackDays = days
	}
	if v := ctx.QueryParam("radius_km"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.HandleError(ctx, err, "invalid radius_km parameter", http.StatusBadRequest)
		}
		opts.RadiusKm = radius
	}
	if v := ctx.QueryParam("max_points"); v != "" {
		maxPoints, err := strconv.Atoi(v)
		if err != nil {
			return c.HandleError(ctx, err, "invalid max_points parameter", http.StatusBadRequest)
		}
		opts.MaxPoints = maxPoints
	}
	if v := ctx.QueryParam("within_miles"); v != "" {
		within, err := strconv.ParseFloat(v, 64)
		if err != nil || within < 0 {
			if err == nil {
				err = errors.NewStd("within_miles must not be negative")
			}
			return c.HandleError(ctx, err, "invalid within_miles parameter", http.StatusBadRequest)
		}
		opts.WithinMiles = &within
	} else if c.settings.Route.ProximityMiles > 0 {
		within := c.settings.Route.ProximityMiles
		opts.WithinMiles = &within
	}

	switch v := ctx.QueryParam("order"); v {
	case "":
		opts.Order = aggregator.OrderRecency
	case string(aggregator.OrderRecency), string(aggregator.OrderRarity):
		opts.Order = aggregator.Order(v)
	default:
		return c.HandleError(ctx, errors.NewStd("order must be recency or rarity"),
			"invalid order parameter", http.StatusBadRequest)
	}

	result, err := c.aggregator.AlongRoute(ctx.Request().Context(), r, opts)
	if err != nil {
		if errors.IsValidation(err) {
			return c.HandleError(ctx, err, "invalid aggregation parameters", http.StatusBadRequest)
		}
		return c.HandleError(ctx, err, "aggregation failed", http.StatusInternalServerError)
	}

	if c.images != nil {
		c.images.EnrichAll(ctx.Request().Context(), result.Species)
	}

	return ctx.JSON(http.StatusOK, SightingsResponse{
		Species:    result.Species,
		Stats:      result.Stats,
		Incomplete: result.Incomplete(),
	})
}
