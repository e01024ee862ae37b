package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/yash1732/gigguard/internal/core/domain"
)

// triggerRequest is the body of POST /v1/sos/trigger.
type triggerRequest struct {
	WorkerID      string   `json:"worker_id"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	EmergencyType string   `json:"emergency_type"`
	Message       string   `json:"message"`
}

// TriggerSOSHandler resolves the nearest emergency resources for a worker.
func TriggerSOSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req triggerRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Latitude == nil || req.Longitude == nil {
			return errBadRequest(c, "latitude and longitude are required")
		}

		bundle, err := deps.SOS.Trigger(c.UserContext(), domain.SOSTrigger{
			WorkerID:      req.WorkerID,
			Location:      domain.GeoPoint{Lat: *req.Latitude, Lon: *req.Longitude},
			EmergencyType: req.EmergencyType,
			Message:       req.Message,
		})
		if err != nil {
			return respondError(c, err)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(bundle)
	}
}

// GetSOSHandler returns a stored SOS event.
func GetSOSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "sos id is required")
		}

		event, err := deps.SOS.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(event)
	}
}

// ListSOSHandler returns a worker's SOS history, newest first.
func ListSOSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		workerID := c.Query("worker_id")
		if workerID == "" {
			return errBadRequest(c, "worker_id query parameter is required")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		events, total, err := deps.SOS.ListByWorker(c.UserContext(), workerID, offset, limit)
		if err != nil {
			return respondError(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: events, Pagination: pg})
	}
}

// AckSOSHandler marks an SOS as acknowledged by a responder.
func AckSOSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		event, err := deps.SOS.Acknowledge(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(event)
	}
}

// ActiveSOSHandler lists unacknowledged SOS events near a point.
func ActiveSOSHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin, ok := queryPoint(c)
		if !ok {
			return errBadRequest(c, "lat and lon are required numbers")
		}
		radius := c.QueryFloat("radius", 5000)
		if radius <= 0 || radius > 50000 {
			return errBadRequest(c, "radius must be between 1 and 50000 meters")
		}
		limit := c.QueryInt("limit", 20)

		events, err := deps.SOS.ActiveNear(c.UserContext(), origin, radius, limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(events)
	}
}

// nearbyResponse is the body of GET /v1/emergency/nearby.
type nearbyResponse struct {
	Category domain.Category    `json:"category"`
	Origin   domain.GeoPoint    `json:"origin"`
	Results  []domain.POIRecord `json:"results"`
}

// NearbyHandler runs the expanding-radius search for a single category.
func NearbyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin, ok := queryPoint(c)
		if !ok {
			return errBadRequest(c, "lat and lon are required numbers")
		}
		category, ok := domain.ParseCategory(c.Query("category", string(domain.CategoryHospital)))
		if !ok {
			return errBadRequest(c, "category must be one of hospital, police, pharmacy")
		}

		records, err := deps.SOS.Nearby(c.UserContext(), category, origin)
		if err != nil {
			return respondError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(nearbyResponse{Category: category, Origin: origin, Results: records})
	}
}

// queryPoint reads lat and lon. Zero is a valid coordinate, so presence
// is checked explicitly.
func queryPoint(c *fiber.Ctx) (domain.GeoPoint, bool) {
	latStr := strings.TrimSpace(c.Query("lat"))
	lonStr := strings.TrimSpace(c.Query("lon"))
	if latStr == "" || lonStr == "" {
		return domain.GeoPoint{}, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.GeoPoint{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, true
}
