package weather

import "time"

// DateLayout is the calendar-date format used across the pipeline, the
// store and both upstream APIs.
const DateLayout = "2006-01-02"

// Coordinate is a geocoded position. Transient; never persisted directly.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TemperaturePoint is the atomic unit of weather data, flowing through
// clients, cache and store uniformly. Temperature is the daily maximum
// in degrees Celsius.
type TemperaturePoint struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
}

// Series is ordered by ascending date with no duplicate dates.
type Series []TemperaturePoint

// Record is the persisted form of one (city, date) measurement. The pair
// (City, Date) is unique; RecordedAt is set once at creation.
type Record struct {
	ID          int64     `json:"id"`
	City        string    `json:"city"`
	Date        string    `json:"date"`
	Temperature float64   `json:"temperature"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// DailyPayload mirrors the parallel date/temperature lists the weather
// upstream returns for daily metrics. Shape validation beyond decoding
// happens during normalization.
type DailyPayload struct {
	Daily struct {
		Time           []string  `json:"time"`
		TemperatureMax []float64 `json:"temperature_2m_max"`
	} `json:"daily"`
}
