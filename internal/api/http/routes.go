package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cosinefox/telemetry-aggregation/internal/telemetry"
)

const healthHeader = "X-Data-Health"

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. steamID is the
// only subject the steam endpoint answers for.
func RegisterRoutes(app *fiber.App, service *telemetry.Service, steamID string) {
	v1 := app.Group("/api/v1")

	for _, category := range service.Categories() {
		if category == telemetry.CategorySteam {
			continue
		}
		v1.Get("/"+string(category), snapshotHandler(service, category))
	}

	v1.Get("/steam", func(c *fiber.Ctx) error {
		q := steamQuery{SteamID: c.Query("steamid")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "steamid must be a 17 digit id")
		}
		if q.SteamID != "" && q.SteamID != steamID {
			return fiber.NewError(fiber.StatusNotFound, "unknown steamid")
		}
		return snapshotHandler(service, telemetry.CategorySteam)(c)
	})

	v1.Get("/freshness/:category", func(c *fiber.Ctx) error {
		category, err := parseCategory(c)
		if err != nil {
			return err
		}

		f, err := service.Freshness(category)
		if err != nil {
			return categoryError(err)
		}
		return c.JSON(f)
	})

	v1.Post("/freshness/:category/touch", func(c *fiber.Ctx) error {
		category, err := parseCategory(c)
		if err != nil {
			return err
		}

		if err := service.MarkRefreshed(category); err != nil {
			return categoryError(err)
		}
		f, err := service.Freshness(category)
		if err != nil {
			return categoryError(err)
		}
		return c.JSON(f)
	})
}

func snapshotHandler(service *telemetry.Service, category telemetry.Category) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := service.Get(c.UserContext(), category)
		if err != nil {
			return categoryError(err)
		}

		health := snap.Health()
		c.Set(healthHeader, string(health))
		if health == telemetry.HealthUnconfigured {
			c.Set(fiber.HeaderCacheControl, "no-store")
		} else {
			c.Set(fiber.HeaderCacheControl, cacheControl(service.Window(category)))
		}
		return c.Status(statusFor(health)).JSON(snap)
	}
}

// statusFor maps snapshot health onto the response code. Partial data is
// still a successful response.
func statusFor(h telemetry.Health) int {
	switch h {
	case telemetry.HealthDegraded:
		return fiber.StatusBadGateway
	case telemetry.HealthUnconfigured:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusOK
	}
}

func cacheControl(window time.Duration) string {
	return "public, max-age=" + strconv.Itoa(int(window.Seconds()))
}

func categoryError(err error) error {
	if errors.Is(err, telemetry.ErrUnknownCategory) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch telemetry")
}

// steamQuery holds query parameters for the steam endpoint.
type steamQuery struct {
	SteamID string `validate:"omitempty,numeric,len=17"`
}

// categoryParam holds the path parameter naming a cache category.
type categoryParam struct {
	Category string `validate:"required,alpha,lowercase,max=32"`
}

func parseCategory(c *fiber.Ctx) (telemetry.Category, error) {
	p := categoryParam{Category: c.Params("category")}
	if err := validate.Struct(p); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid category")
	}
	return telemetry.Category(p.Category), nil
}
