package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"weather-history/internal/apperrors"
	"weather-history/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS weather_records (
	id          BIGSERIAL PRIMARY KEY,
	city        TEXT NOT NULL,
	date        DATE NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (city, date)
)`

// PostgresStore implements weather.Store on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

func NewPostgresStore(pool *pgxpool.Pool, log *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		log:  log.WithField("component", "store"),
	}
}

// EnsureSchema creates the records table and its natural-key constraint
// if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return apperrors.Wrap(apperrors.KindStorage, err, "ensuring schema")
	}
	return nil
}

// Upsert stores one (city, date) temperature. A missing record is
// created; an existing one is overwritten only when the temperature
// differs (last-write-wins, no history). The returned flag reports
// whether a new record was created.
func (s *PostgresStore) Upsert(ctx context.Context, city, date string, temperature float64) (weather.Record, bool, error) {
	var rec weather.Record
	var existing float64

	err := s.pool.QueryRow(ctx,
		`SELECT id, temperature, recorded_at
		 FROM weather_records
		 WHERE city = $1 AND date = $2`,
		city, date,
	).Scan(&rec.ID, &existing, &rec.RecordedAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err := s.pool.QueryRow(ctx,
			`INSERT INTO weather_records (city, date, temperature)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (city, date) DO UPDATE SET temperature = EXCLUDED.temperature
			 RETURNING id, recorded_at`,
			city, date, temperature,
		).Scan(&rec.ID, &rec.RecordedAt)
		if err != nil {
			return weather.Record{}, false, apperrors.Wrap(apperrors.KindStorage, err, "inserting record %s/%s", city, date)
		}
		rec.City, rec.Date, rec.Temperature = city, date, temperature
		s.log.WithFields(logrus.Fields{"city": city, "date": date}).Debug("created weather record")
		return rec, true, nil

	case err != nil:
		return weather.Record{}, false, apperrors.Wrap(apperrors.KindStorage, err, "looking up record %s/%s", city, date)
	}

	rec.City, rec.Date, rec.Temperature = city, date, existing
	if existing == temperature {
		return rec, false, nil
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE weather_records SET temperature = $1 WHERE city = $2 AND date = $3`,
		temperature, city, date,
	); err != nil {
		return weather.Record{}, false, apperrors.Wrap(apperrors.KindStorage, err, "updating record %s/%s", city, date)
	}
	rec.Temperature = temperature
	s.log.WithFields(logrus.Fields{"city": city, "date": date}).Debug("updated weather record")
	return rec, false, nil
}

// Range returns the stored points for city within the inclusive date
// range, ascending by date, in the uniform series shape.
func (s *PostgresStore) Range(ctx context.Context, city, startDate, endDate string) (weather.Series, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), temperature
		 FROM weather_records
		 WHERE city = $1 AND date >= $2 AND date <= $3
		 ORDER BY date ASC`,
		city, startDate, endDate,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, err, "querying range for %s (%s..%s)", city, startDate, endDate)
	}
	defer rows.Close()

	var series weather.Series
	for rows.Next() {
		var p weather.TemperaturePoint
		if err := rows.Scan(&p.Date, &p.Temperature); err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, err, "scanning range row for %s", city)
		}
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, err, "reading range rows for %s", city)
	}

	return series, nil
}

// List returns stored records filtered by an optional case-insensitive
// city substring and optional date bounds, newest date first.
func (s *PostgresStore) List(ctx context.Context, city, startDate, endDate string) ([]weather.Record, error) {
	query := `SELECT id, city, to_char(date, 'YYYY-MM-DD'), temperature, recorded_at
		FROM weather_records WHERE 1=1`
	var args []any

	if city != "" {
		args = append(args, "%"+city+"%")
		query += fmt.Sprintf(" AND city ILIKE $%d", len(args))
	}
	if startDate != "" {
		args = append(args, startDate)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if endDate != "" {
		args = append(args, endDate)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date DESC, city ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, err, "listing records")
	}
	defer rows.Close()

	var records []weather.Record
	for rows.Next() {
		var r weather.Record
		if err := rows.Scan(&r.ID, &r.City, &r.Date, &r.Temperature, &r.RecordedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, err, "scanning record row")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, err, "reading record rows")
	}

	return records, nil
}
