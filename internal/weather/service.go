package weather

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"weather-history/internal/apperrors"
	"weather-history/internal/cache"
)

// Geocoder resolves a free-text city name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, city string) (Coordinate, error)
}

// Fetcher retrieves daily maximum temperatures for a coordinate pair and
// inclusive date range.
type Fetcher interface {
	FetchDaily(ctx context.Context, lat, lon float64, startDate, endDate string) (DailyPayload, error)
}

// Store persists (city, date) temperature records.
type Store interface {
	Upsert(ctx context.Context, city, date string, temperature float64) (Record, bool, error)
	Range(ctx context.Context, city, startDate, endDate string) (Series, error)
}

// Service is the orchestration pipeline: date range computation, series
// cache, store completeness check, geocode+fetch fallback, normalization
// and idempotent persistence.
type Service struct {
	geocoder Geocoder
	fetcher  Fetcher
	store    Store
	cache    *cache.Cache

	seriesTTL time.Duration
	maxDays   int

	now func() time.Time
	log *logrus.Entry
}

func NewService(geocoder Geocoder, fetcher Fetcher, store Store, c *cache.Cache, seriesTTL time.Duration, maxDays int, log *logrus.Logger) *Service {
	return &Service{
		geocoder:  geocoder,
		fetcher:   fetcher,
		store:     store,
		cache:     c,
		seriesTTL: seriesTTL,
		maxDays:   maxDays,
		now:       time.Now,
		log:       log.WithField("component", "weather"),
	}
}

// MaxDays returns the upper bound accepted for the days parameter.
func (s *Service) MaxDays() int { return s.maxDays }

// DateRange returns the inclusive [today-days, today] range, days+1
// calendar days long, anchored on the wall-clock date at call time.
func (s *Service) DateRange(days int) (startDate, endDate string) {
	today := s.now()
	return today.AddDate(0, 0, -days).Format(DateLayout), today.Format(DateLayout)
}

// GetAverage returns the daily maximum temperature series for the city
// over the trailing range. The whole computation is cached per
// (city, days) for the series TTL window.
func (s *Service) GetAverage(ctx context.Context, city string, days int) (Series, error) {
	if city == "" {
		return nil, apperrors.New(apperrors.KindValidation, "city must not be empty")
	}
	if days < 1 || days > s.maxDays {
		return nil, apperrors.New(apperrors.KindValidation, "days must be between 1 and %d", s.maxDays)
	}

	key := fmt.Sprintf("series:%s:%d", city, days)
	return cache.GetOrCompute(s.cache, key, s.seriesTTL, func() (Series, error) {
		return s.buildSeries(ctx, city, days)
	})
}

func (s *Service) buildSeries(ctx context.Context, city string, days int) (Series, error) {
	startDate, endDate := s.DateRange(days)
	log := s.log.WithFields(logrus.Fields{"city": city, "start": startDate, "end": endDate})

	stored, err := s.store.Range(ctx, city, startDate, endDate)
	if err != nil {
		return nil, err
	}
	// Exactly `days` stored rows count as a complete local hit. The check
	// is on the count alone, not on which dates are covered.
	if len(stored) == days {
		log.Info("serving range from store")
		return stored, nil
	}

	coord, err := s.geocoder.Resolve(ctx, city)
	if err != nil {
		return nil, err
	}

	payload, err := s.fetcher.FetchDaily(ctx, coord.Latitude, coord.Longitude, startDate, endDate)
	if err != nil {
		return nil, err
	}

	series, err := Normalize(payload)
	if err != nil {
		return nil, fmt.Errorf("weather data for %q: %w", city, err)
	}

	for _, p := range series {
		if _, _, err := s.store.Upsert(ctx, city, p.Date, p.Temperature); err != nil {
			return nil, err
		}
	}

	log.WithField("points", len(series)).Info("fetched and persisted range")
	return series, nil
}

// Normalize pairs the upstream date and temperature lists positionally
// into a Series. Lists of unequal length are rejected rather than
// truncated, so a short temperature list cannot silently drop data.
func Normalize(payload DailyPayload) (Series, error) {
	dates := payload.Daily.Time
	temps := payload.Daily.TemperatureMax

	if len(dates) != len(temps) {
		return nil, apperrors.New(apperrors.KindInvalidUpstreamResponse,
			"mismatched daily lists: %d dates, %d temperatures", len(dates), len(temps))
	}

	series := make(Series, 0, len(dates))
	for i := range dates {
		series = append(series, TemperaturePoint{Date: dates[i], Temperature: temps[i]})
	}
	return series, nil
}

// Mean returns the arithmetic mean temperature rounded to two decimal
// places. An empty series yields 0.
func Mean(series Series) float64 {
	if len(series) == 0 {
		return 0
	}

	var sum float64
	for _, p := range series {
		sum += p.Temperature
	}
	return math.Round(sum/float64(len(series))*100) / 100
}
