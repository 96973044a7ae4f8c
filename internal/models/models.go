package models

import (
	"database/sql"
	"time"
)

// Unit systems an Observation can be expressed in. ASCII packets decode to
// metric quantities; the legacy fixed-length frame carries US units.
const (
	UnitsMetric = "metric"
	UnitsUS     = "us"
)

// Observation is one enriched measurement record from the transmitter.
// A single poll populates only the field subset of the packet type it
// received; everything else stays NULL.
type Observation struct {
	ID         int64
	DateTime   int64 // epoch seconds
	UnitSystem string
	StationID  sql.NullInt64

	// Wind (packet type 1)
	WindSpeedMin sql.NullFloat64
	WindSpeed    sql.NullFloat64
	WindSpeedMax sql.NullFloat64
	WindDirMin   sql.NullFloat64
	WindDir      sql.NullFloat64
	WindDirMax   sql.NullFloat64

	// Pressure, temperature, humidity (packet type 2)
	OutTemp     sql.NullFloat64
	OutHumidity sql.NullFloat64
	Pressure    sql.NullFloat64

	// Precipitation and hail (packet type 3)
	LongTermRain      sql.NullFloat64
	RainDuration      sql.NullFloat64
	RainIntensity     sql.NullFloat64
	RainPeakIntensity sql.NullFloat64
	Hail              sql.NullFloat64
	HailDuration      sql.NullFloat64
	HailIntensity     sql.NullFloat64
	HailPeakIntensity sql.NullFloat64

	// Supervisor diagnostics (packet type 5)
	HeatingTemp      sql.NullFloat64
	HeatingVoltage   sql.NullFloat64
	SupplyVoltage    sql.NullFloat64
	ReferenceVoltage sql.NullFloat64

	// Legacy fixed-frame extras
	InTemp      sql.NullFloat64
	InHumidity  sql.NullFloat64
	DailyRain   sql.NullFloat64
	WindAverage sql.NullFloat64
	DayOfYear   sql.NullInt64
	MinuteOfDay sql.NullInt64

	// Derived by the acquisition loop: delta of LongTermRain against the
	// previous successful reading. NULL on the first record of a run.
	Rain sql.NullFloat64

	QualityFlags string
	CreatedAt    time.Time
}
