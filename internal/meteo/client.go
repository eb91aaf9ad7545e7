package meteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"weather-history/internal/apperrors"
	"weather-history/internal/cache"
	"weather-history/internal/upstream"
	"weather-history/internal/weather"
)

type Config struct {
	BaseURL string

	// CacheTTL is short; past temperatures are final once recorded but
	// ranges anchored on "today" shift daily.
	CacheTTL time.Duration
}

// Client fetches daily maximum temperatures from Open-Meteo.
type Client struct {
	cfg      Config
	upstream *upstream.Client
	cache    *cache.Cache
	log      *logrus.Entry
}

func NewClient(httpClient *http.Client, cfg Config, store *cache.Cache, log *logrus.Logger) *Client {
	return &Client{
		cfg:      cfg,
		upstream: upstream.NewClient(httpClient, "open-meteo"),
		cache:    store,
		log:      log.WithField("component", "weather-fetch"),
	}
}

// FetchDaily retrieves daily maxima for the inclusive [startDate, endDate]
// range at the given coordinates. Dates are YYYY-MM-DD strings.
func (c *Client) FetchDaily(ctx context.Context, lat, lon float64, startDate, endDate string) (weather.DailyPayload, error) {
	key := fmt.Sprintf("weather:%s:%s:%s:%s",
		formatCoord(lat), formatCoord(lon), startDate, endDate)

	return cache.GetOrCompute(c.cache, key, c.cfg.CacheTTL, func() (weather.DailyPayload, error) {
		return c.fetchDaily(ctx, lat, lon, startDate, endDate)
	})
}

func (c *Client) fetchDaily(ctx context.Context, lat, lon float64, startDate, endDate string) (weather.DailyPayload, error) {
	c.log.WithFields(logrus.Fields{
		"lat": lat, "lon": lon, "start": startDate, "end": endDate,
	}).Info("fetching daily temperatures")

	values := url.Values{}
	values.Set("latitude", formatCoord(lat))
	values.Set("longitude", formatCoord(lon))
	values.Set("start_date", startDate)
	values.Set("end_date", endDate)
	values.Set("daily", "temperature_2m_max")
	values.Set("timezone", "auto")

	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"?"+values.Encode(), nil)
	if err != nil {
		return weather.DailyPayload{}, err
	}

	resp, err := c.upstream.Do(ctx, req)
	if err != nil {
		return weather.DailyPayload{}, fmt.Errorf("fetching weather for (%s, %s) %s..%s: %w",
			formatCoord(lat), formatCoord(lon), startDate, endDate, err)
	}
	defer resp.Body.Close()

	var payload weather.DailyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.DailyPayload{}, apperrors.Wrap(apperrors.KindInvalidUpstreamResponse, err,
			"decoding weather for (%s, %s) %s..%s", formatCoord(lat), formatCoord(lon), startDate, endDate)
	}

	return payload, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
