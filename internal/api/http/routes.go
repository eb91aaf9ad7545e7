package httpapi

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"weather-history/internal/apperrors"
	"weather-history/internal/weather"
)

var validate = validator.New()

// AverageService is the slice of the orchestration pipeline the HTTP
// layer consumes.
type AverageService interface {
	GetAverage(ctx context.Context, city string, days int) (weather.Series, error)
	DateRange(days int) (startDate, endDate string)
	MaxDays() int
}

// RecordLister backs the persisted-records listing endpoint.
type RecordLister interface {
	List(ctx context.Context, city, startDate, endDate string) ([]weather.Record, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service AverageService, records RecordLister) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/average", func(c *fiber.Ctx) error {
		var q averageQuery
		q.City = c.Query("city")
		q.Days = c.QueryInt("days")

		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if q.Days > service.MaxDays() {
			return fiber.NewError(fiber.StatusBadRequest,
				"days must not exceed "+strconv.Itoa(service.MaxDays()))
		}

		series, err := service.GetAverage(c.Context(), q.City, q.Days)
		if err != nil {
			return toHTTPError(err)
		}

		startDate, endDate := service.DateRange(q.Days)
		return c.JSON(fiber.Map{
			"city":                q.City,
			"average_temperature": weather.Mean(series),
			"days":                q.Days,
			"start_date":          startDate,
			"end_date":            endDate,
		})
	})

	v1.Get("/weather/records", func(c *fiber.Ctx) error {
		startDate := c.Query("start_date")
		endDate := c.Query("end_date")
		for _, d := range []string{startDate, endDate} {
			if d == "" {
				continue
			}
			if _, err := time.Parse(weather.DateLayout, d); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "dates must use the YYYY-MM-DD format")
			}
		}

		recs, err := records.List(c.Context(), c.Query("city"), startDate, endDate)
		if err != nil {
			return toHTTPError(err)
		}

		return c.JSON(fiber.Map{
			"count":   len(recs),
			"records": recs,
		})
	})
}

// averageQuery holds the query parameters of the average endpoint.
type averageQuery struct {
	City string `validate:"required"`
	Days int    `validate:"required,min=1"`
}

// toHTTPError maps the closed error-kind set onto transport status codes.
// Applied uniformly at this boundary; the pipeline below knows nothing
// about HTTP.
func toHTTPError(err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case apperrors.KindNotFound:
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case apperrors.KindUpstreamUnavailable, apperrors.KindInvalidUpstreamResponse:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
