package api

import (
	"database/sql"
	"encoding/json"

	"github.com/lox/wxtd/internal/models"
)

// ObservationView is the JSON shape of an observation. Nullable measurements
// become pointers so absent fields serialize as null, matching the record
// schema consumers expect.
type ObservationView struct {
	DateTime   int64  `json:"dateTime"`
	UnitSystem string `json:"unitSystem"`
	StationID  *int64 `json:"stationId"`

	WindSpeedMin *float64 `json:"windSpeedMin"`
	WindSpeed    *float64 `json:"windSpeed"`
	WindSpeedMax *float64 `json:"windSpeedMax"`
	WindDirMin   *float64 `json:"windDirMin"`
	WindDir      *float64 `json:"windDir"`
	WindDirMax   *float64 `json:"windDirMax"`

	OutTemp     *float64 `json:"outTemp"`
	OutHumidity *float64 `json:"outHumidity"`
	Pressure    *float64 `json:"pressure"`

	LongTermRain      *float64 `json:"longTermRain"`
	Rain              *float64 `json:"rain"`
	RainDuration      *float64 `json:"rainDuration"`
	RainIntensity     *float64 `json:"rainIntensity"`
	RainPeakIntensity *float64 `json:"rainPeakIntensity"`
	Hail              *float64 `json:"hail"`
	HailDuration      *float64 `json:"hailDuration"`
	HailIntensity     *float64 `json:"hailIntensity"`
	HailPeakIntensity *float64 `json:"hailPeakIntensity"`

	HeatingTemp      *float64 `json:"heatingTemp"`
	HeatingVoltage   *float64 `json:"heatingVoltage"`
	SupplyVoltage    *float64 `json:"supplyVoltage"`
	ReferenceVoltage *float64 `json:"referenceVoltage"`

	InTemp      *float64 `json:"inTemp"`
	InHumidity  *float64 `json:"inHumidity"`
	DailyRain   *float64 `json:"dailyRain"`
	WindAverage *float64 `json:"windAverage"`

	QualityFlags []string `json:"qualityFlags,omitempty"`
}

// NewObservationView converts a stored observation to its JSON shape.
func NewObservationView(obs *models.Observation) *ObservationView {
	v := &ObservationView{
		DateTime:   obs.DateTime,
		UnitSystem: obs.UnitSystem,

		WindSpeedMin: nullToPtr(obs.WindSpeedMin),
		WindSpeed:    nullToPtr(obs.WindSpeed),
		WindSpeedMax: nullToPtr(obs.WindSpeedMax),
		WindDirMin:   nullToPtr(obs.WindDirMin),
		WindDir:      nullToPtr(obs.WindDir),
		WindDirMax:   nullToPtr(obs.WindDirMax),

		OutTemp:     nullToPtr(obs.OutTemp),
		OutHumidity: nullToPtr(obs.OutHumidity),
		Pressure:    nullToPtr(obs.Pressure),

		LongTermRain:      nullToPtr(obs.LongTermRain),
		Rain:              nullToPtr(obs.Rain),
		RainDuration:      nullToPtr(obs.RainDuration),
		RainIntensity:     nullToPtr(obs.RainIntensity),
		RainPeakIntensity: nullToPtr(obs.RainPeakIntensity),
		Hail:              nullToPtr(obs.Hail),
		HailDuration:      nullToPtr(obs.HailDuration),
		HailIntensity:     nullToPtr(obs.HailIntensity),
		HailPeakIntensity: nullToPtr(obs.HailPeakIntensity),

		HeatingTemp:      nullToPtr(obs.HeatingTemp),
		HeatingVoltage:   nullToPtr(obs.HeatingVoltage),
		SupplyVoltage:    nullToPtr(obs.SupplyVoltage),
		ReferenceVoltage: nullToPtr(obs.ReferenceVoltage),

		InTemp:      nullToPtr(obs.InTemp),
		InHumidity:  nullToPtr(obs.InHumidity),
		DailyRain:   nullToPtr(obs.DailyRain),
		WindAverage: nullToPtr(obs.WindAverage),
	}
	if obs.StationID.Valid {
		id := obs.StationID.Int64
		v.StationID = &id
	}
	if obs.QualityFlags != "" {
		json.Unmarshal([]byte(obs.QualityFlags), &v.QualityFlags)
	}
	return v
}

func nullToPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
