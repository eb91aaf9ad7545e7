package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"weather-history/internal/apperrors"
	"weather-history/internal/cache"
	"weather-history/internal/upstream"
	"weather-history/internal/weather"
)

type Config struct {
	BaseURL        string
	UserAgent      string
	AcceptLanguage string

	// MinInterval is the upstream's documented per-requester spacing.
	MinInterval time.Duration

	// CacheTTL should be long; city coordinates are effectively static.
	CacheTTL time.Duration
}

// Client resolves free-text city names to coordinates via Nominatim.
type Client struct {
	cfg      Config
	upstream *upstream.Client

	// limiter is shared by all calls through this client, so concurrent
	// cache misses are serialized rather than racing past the upstream's
	// rate policy.
	limiter *rate.Limiter

	cache *cache.Cache
	log   *logrus.Entry
}

func NewClient(httpClient *http.Client, cfg Config, store *cache.Cache, log *logrus.Logger) *Client {
	return &Client{
		cfg:      cfg,
		upstream: upstream.NewClient(httpClient, "nominatim"),
		limiter:  rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cache:    store,
		log:      log.WithField("component", "geocoding"),
	}
}

// Resolve maps a city name to its coordinates. Lookups are cached under
// the lowercased city name.
func (c *Client) Resolve(ctx context.Context, city string) (weather.Coordinate, error) {
	key := "geocode:" + strings.ToLower(city)
	return cache.GetOrCompute(c.cache, key, c.cfg.CacheTTL, func() (weather.Coordinate, error) {
		return c.resolve(ctx, city)
	})
}

func (c *Client) resolve(ctx context.Context, city string) (weather.Coordinate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return weather.Coordinate{}, apperrors.Wrap(apperrors.KindUpstreamUnavailable, err, "geocoding city %q", city)
	}

	c.log.WithField("city", city).Info("geocoding city")

	values := url.Values{}
	values.Set("q", city)
	values.Set("format", "json")
	values.Set("limit", "1")
	values.Set("addressdetails", "0")
	values.Set("featuretype", "city")

	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"?"+values.Encode(), nil)
	if err != nil {
		return weather.Coordinate{}, err
	}
	// Required by the Nominatim usage policy.
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Language", c.cfg.AcceptLanguage)

	resp, err := c.upstream.Do(ctx, req)
	if err != nil {
		return weather.Coordinate{}, fmt.Errorf("geocoding city %q: %w", city, err)
	}
	defer resp.Body.Close()

	var results []struct {
		Lat  string `json:"lat"`
		Lon  string `json:"lon"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return weather.Coordinate{}, apperrors.Wrap(apperrors.KindInvalidUpstreamResponse, err, "geocoding city %q: malformed response", city)
	}

	if len(results) == 0 {
		return weather.Coordinate{}, apperrors.New(apperrors.KindNotFound, "could not find coordinates for city %q", city)
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return weather.Coordinate{}, apperrors.New(apperrors.KindInvalidUpstreamResponse,
			"geocoding city %q: unparseable coordinates lat=%q lon=%q", city, results[0].Lat, results[0].Lon)
	}

	return weather.Coordinate{Latitude: lat, Longitude: lon}, nil
}
