package weather

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"weather-history/internal/apperrors"
	"weather-history/internal/cache"
)

type fakeGeocoder struct {
	coord Coordinate
	err   error
	calls int
}

func (f *fakeGeocoder) Resolve(ctx context.Context, city string) (Coordinate, error) {
	f.calls++
	return f.coord, f.err
}

type fakeFetcher struct {
	payload DailyPayload
	err     error
	calls   int
}

func (f *fakeFetcher) FetchDaily(ctx context.Context, lat, lon float64, startDate, endDate string) (DailyPayload, error) {
	f.calls++
	return f.payload, f.err
}

type fakeStore struct {
	ranged   Series
	rangeErr error
	upserts  []TemperaturePoint
}

func (f *fakeStore) Upsert(ctx context.Context, city, date string, temperature float64) (Record, bool, error) {
	f.upserts = append(f.upserts, TemperaturePoint{Date: date, Temperature: temperature})
	return Record{City: city, Date: date, Temperature: temperature}, true, nil
}

func (f *fakeStore) Range(ctx context.Context, city, startDate, endDate string) (Series, error) {
	return f.ranged, f.rangeErr
}

func payloadOf(dates []string, temps []float64) DailyPayload {
	var p DailyPayload
	p.Daily.Time = dates
	p.Daily.TemperatureMax = temps
	return p
}

func newTestService(g Geocoder, f Fetcher, st Store) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := NewService(g, f, st, cache.New(), time.Hour, 30, log)
	s.now = func() time.Time {
		return time.Date(2025, 9, 12, 15, 30, 0, 0, time.UTC)
	}
	return s
}

func TestDateRange(t *testing.T) {
	s := newTestService(&fakeGeocoder{}, &fakeFetcher{}, &fakeStore{})

	start, end := s.DateRange(7)
	if start != "2025-09-05" || end != "2025-09-12" {
		t.Fatalf("expected 2025-09-05..2025-09-12, got %s..%s", start, end)
	}
}

func TestCompleteLocalHitSkipsUpstream(t *testing.T) {
	stored := Series{
		{Date: "2025-09-10", Temperature: 21.0},
		{Date: "2025-09-11", Temperature: 22.5},
		{Date: "2025-09-12", Temperature: 20.1},
	}
	geocoder := &fakeGeocoder{}
	fetcher := &fakeFetcher{}
	s := newTestService(geocoder, fetcher, &fakeStore{ranged: stored})

	series, err := s.GetAverage(context.Background(), "London", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 3 || series[0] != stored[0] {
		t.Fatalf("expected the stored series, got %v", series)
	}
	if geocoder.calls != 0 || fetcher.calls != 0 {
		t.Fatalf("complete local hit must not reach upstream: geocode=%d fetch=%d", geocoder.calls, fetcher.calls)
	}
}

func TestIncompleteStoreFallsThroughToUpstream(t *testing.T) {
	store := &fakeStore{ranged: Series{{Date: "2025-09-11", Temperature: 19.0}}}
	geocoder := &fakeGeocoder{coord: Coordinate{Latitude: 51.5, Longitude: -0.13}}
	fetcher := &fakeFetcher{payload: payloadOf(
		[]string{"2025-09-09", "2025-09-10", "2025-09-11", "2025-09-12"},
		[]float64{18.0, 19.5, 19.0, 20.0},
	)}
	s := newTestService(geocoder, fetcher, store)

	series, err := s.GetAverage(context.Background(), "London", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geocoder.calls != 1 || fetcher.calls != 1 {
		t.Fatalf("expected one geocode and one fetch, got %d and %d", geocoder.calls, fetcher.calls)
	}
	if len(series) != 4 {
		t.Fatalf("expected the freshly normalized series, got %d points", len(series))
	}
	if len(store.upserts) != 4 {
		t.Fatalf("expected every point persisted, got %d upserts", len(store.upserts))
	}
}

func TestGeocodeNotFoundAbortsPipeline(t *testing.T) {
	store := &fakeStore{}
	geocoder := &fakeGeocoder{err: apperrors.New(apperrors.KindNotFound, "could not find coordinates for city %q", "Nonexistentville")}
	fetcher := &fakeFetcher{}
	s := newTestService(geocoder, fetcher, store)

	_, err := s.GetAverage(context.Background(), "Nonexistentville", 3)
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected a not-found error, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "Nonexistentville") {
		t.Fatalf("error should carry the city name, got %q", got)
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetch must not run after a geocoding failure")
	}
	if len(store.upserts) != 0 {
		t.Fatalf("nothing may be persisted on failure, got %d upserts", len(store.upserts))
	}
}

func TestFetchFailureLeavesNothingPersisted(t *testing.T) {
	store := &fakeStore{}
	geocoder := &fakeGeocoder{coord: Coordinate{Latitude: 48.85, Longitude: 2.35}}
	fetcher := &fakeFetcher{err: apperrors.New(apperrors.KindUpstreamUnavailable, "connection refused")}
	s := newTestService(geocoder, fetcher, store)

	_, err := s.GetAverage(context.Background(), "Paris", 5)
	if !apperrors.IsKind(err, apperrors.KindUpstreamUnavailable) {
		t.Fatalf("expected an upstream-unavailable error, got %v", err)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("no partial results: expected 0 upserts, got %d", len(store.upserts))
	}
}

func TestSeriesResultIsCached(t *testing.T) {
	geocoder := &fakeGeocoder{coord: Coordinate{Latitude: 1, Longitude: 2}}
	fetcher := &fakeFetcher{payload: payloadOf([]string{"2025-09-12"}, []float64{25.0})}
	s := newTestService(geocoder, fetcher, &fakeStore{})

	for i := 0; i < 2; i++ {
		if _, err := s.GetAverage(context.Background(), "Tokyo", 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if fetcher.calls != 1 {
		t.Fatalf("second call within TTL must be served from cache, got %d fetches", fetcher.calls)
	}
}

func TestDaysValidation(t *testing.T) {
	s := newTestService(&fakeGeocoder{}, &fakeFetcher{}, &fakeStore{})

	for _, days := range []int{0, -1, 31} {
		_, err := s.GetAverage(context.Background(), "London", days)
		if !apperrors.IsKind(err, apperrors.KindValidation) {
			t.Fatalf("days=%d: expected a validation error, got %v", days, err)
		}
	}

	_, err := s.GetAverage(context.Background(), "", 3)
	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("empty city: expected a validation error, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	series, err := Normalize(payloadOf([]string{"2025-09-10"}, []float64{25.5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := TemperaturePoint{Date: "2025-09-10", Temperature: 25.5}
	if len(series) != 1 || series[0] != want {
		t.Fatalf("expected [%v], got %v", want, series)
	}
}

func TestNormalizeRejectsMismatchedLists(t *testing.T) {
	_, err := Normalize(payloadOf([]string{"2025-09-10", "2025-09-11"}, []float64{25.5}))
	if !apperrors.IsKind(err, apperrors.KindInvalidUpstreamResponse) {
		t.Fatalf("expected an invalid-upstream-response error, got %v", err)
	}
}

func TestMean(t *testing.T) {
	series := Series{
		{Temperature: 25.5},
		{Temperature: 26.8},
		{Temperature: 24.3},
	}
	if got := Mean(series); got != 25.53 {
		t.Fatalf("expected 25.53, got %v", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("empty series must yield 0, got %v", got)
	}
}
