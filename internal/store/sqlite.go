package store

import (
	"database/sql"
	"time"

	"github.com/lox/wxtd/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const observationColumns = `id, date_time, unit_system, station_id,
	wind_speed_min, wind_speed, wind_speed_max, wind_dir_min, wind_dir, wind_dir_max,
	out_temp, out_humidity, pressure,
	long_term_rain, rain_duration, rain_intensity, rain_peak_intensity,
	hail, hail_duration, hail_intensity, hail_peak_intensity,
	heating_temp, heating_voltage, supply_voltage, reference_voltage,
	in_temp, in_humidity, daily_rain, wind_average, day_of_year, minute_of_day,
	rain, quality_flags, created_at`

func (s *Store) InsertObservation(obs models.Observation) error {
	_, err := s.db.Exec(`
		INSERT INTO observations (date_time, unit_system, station_id,
			wind_speed_min, wind_speed, wind_speed_max, wind_dir_min, wind_dir, wind_dir_max,
			out_temp, out_humidity, pressure,
			long_term_rain, rain_duration, rain_intensity, rain_peak_intensity,
			hail, hail_duration, hail_intensity, hail_peak_intensity,
			heating_temp, heating_voltage, supply_voltage, reference_voltage,
			in_temp, in_humidity, daily_rain, wind_average, day_of_year, minute_of_day,
			rain, quality_flags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, obs.DateTime, obs.UnitSystem, obs.StationID,
		obs.WindSpeedMin, obs.WindSpeed, obs.WindSpeedMax, obs.WindDirMin, obs.WindDir, obs.WindDirMax,
		obs.OutTemp, obs.OutHumidity, obs.Pressure,
		obs.LongTermRain, obs.RainDuration, obs.RainIntensity, obs.RainPeakIntensity,
		obs.Hail, obs.HailDuration, obs.HailIntensity, obs.HailPeakIntensity,
		obs.HeatingTemp, obs.HeatingVoltage, obs.SupplyVoltage, obs.ReferenceVoltage,
		obs.InTemp, obs.InHumidity, obs.DailyRain, obs.WindAverage, obs.DayOfYear, obs.MinuteOfDay,
		obs.Rain, obs.QualityFlags)
	return err
}

func scanObservation(row interface{ Scan(...any) error }) (*models.Observation, error) {
	var obs models.Observation
	err := row.Scan(&obs.ID, &obs.DateTime, &obs.UnitSystem, &obs.StationID,
		&obs.WindSpeedMin, &obs.WindSpeed, &obs.WindSpeedMax, &obs.WindDirMin, &obs.WindDir, &obs.WindDirMax,
		&obs.OutTemp, &obs.OutHumidity, &obs.Pressure,
		&obs.LongTermRain, &obs.RainDuration, &obs.RainIntensity, &obs.RainPeakIntensity,
		&obs.Hail, &obs.HailDuration, &obs.HailIntensity, &obs.HailPeakIntensity,
		&obs.HeatingTemp, &obs.HeatingVoltage, &obs.SupplyVoltage, &obs.ReferenceVoltage,
		&obs.InTemp, &obs.InHumidity, &obs.DailyRain, &obs.WindAverage, &obs.DayOfYear, &obs.MinuteOfDay,
		&obs.Rain, &obs.QualityFlags, &obs.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

func (s *Store) LatestObservation() (*models.Observation, error) {
	row := s.db.QueryRow(`
		SELECT ` + observationColumns + `
		FROM observations
		ORDER BY date_time DESC, id DESC
		LIMIT 1
	`)
	obs, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return obs, nil
}

func (s *Store) Observations(start, end time.Time) ([]models.Observation, error) {
	rows, err := s.db.Query(`
		SELECT `+observationColumns+`
		FROM observations
		WHERE date_time >= ? AND date_time <= ?
		ORDER BY date_time ASC
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []models.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, *obs)
	}
	return observations, rows.Err()
}

type TodayStats struct {
	MinTemp   sql.NullFloat64
	MaxTemp   sql.NullFloat64
	RainTotal sql.NullFloat64
	MaxWind   sql.NullFloat64
}

// TodayStats aggregates since the given local day start. Rain is summed from
// the per-poll deltas, so a counter reset shows up here exactly as the
// driver surfaced it.
func (s *Store) TodayStats(dayStart time.Time) (*TodayStats, error) {
	var st TodayStats
	err := s.db.QueryRow(`
		SELECT MIN(out_temp), MAX(out_temp), SUM(rain), MAX(wind_speed_max)
		FROM observations
		WHERE date_time >= ?
	`, dayStart.Unix()).Scan(&st.MinTemp, &st.MaxTemp, &st.RainTotal, &st.MaxWind)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// PruneBefore removes observations older than cutoff and returns the number
// of rows deleted.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM observations WHERE date_time < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
