package wxt

import (
	"encoding/json"

	"github.com/lox/wxtd/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindDirInvalid     = "wind_dir_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagPrecipNegative     = "precip_negative"
)

// QualityFlags runs range sanity checks over a decoded observation. Flags
// are advisory only; values are never modified or dropped. Range checks
// assume metric units, so for legacy (US unit) records only the sign checks
// apply.
func QualityFlags(obs *models.Observation) []string {
	var flags []string

	if obs.UnitSystem == models.UnitsMetric {
		if obs.OutTemp.Valid && (obs.OutTemp.Float64 < -60 || obs.OutTemp.Float64 > 60) {
			flags = append(flags, FlagTempOutOfRange)
		}
		if obs.OutHumidity.Valid && (obs.OutHumidity.Float64 < 0 || obs.OutHumidity.Float64 > 100) {
			flags = append(flags, FlagHumidityInvalid)
		}
		if obs.WindSpeed.Valid && (obs.WindSpeed.Float64 < 0 || obs.WindSpeed.Float64 > 75) {
			flags = append(flags, FlagWindSpeedUnlikely)
		}
		if obs.Pressure.Valid && (obs.Pressure.Float64 < 500 || obs.Pressure.Float64 > 1100) {
			flags = append(flags, FlagPressureOutOfRange)
		}
	}

	if obs.WindDir.Valid && (obs.WindDir.Float64 < 0 || obs.WindDir.Float64 > 360) {
		flags = append(flags, FlagWindDirInvalid)
	}

	// A negative rain delta means the transmitter's cumulative counter went
	// backwards, which happens on a device reset. The value passes through
	// unclamped; the flag records that it did.
	if obs.Rain.Valid && obs.Rain.Float64 < 0 {
		flags = append(flags, FlagPrecipNegative)
	}
	if obs.LongTermRain.Valid && obs.LongTermRain.Float64 < 0 {
		flags = append(flags, FlagPrecipNegative)
	}

	return flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
