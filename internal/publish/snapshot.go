package publish

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lox/wxtd/internal/models"
)

// snapshot is the uploaded document: a small stable subset of the record,
// with nulls preserved.
type snapshot struct {
	GeneratedAt  string   `json:"generatedAt"`
	DateTime     int64    `json:"dateTime"`
	UnitSystem   string   `json:"unitSystem"`
	OutTemp      *float64 `json:"outTemp"`
	OutHumidity  *float64 `json:"outHumidity"`
	Pressure     *float64 `json:"pressure"`
	WindSpeed    *float64 `json:"windSpeed"`
	WindDir      *float64 `json:"windDir"`
	Rain         *float64 `json:"rain"`
	LongTermRain *float64 `json:"longTermRain"`
}

// Snapshot renders the observation as the published current-conditions JSON.
func Snapshot(obs *models.Observation) ([]byte, error) {
	return json.MarshalIndent(snapshot{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		DateTime:     obs.DateTime,
		UnitSystem:   obs.UnitSystem,
		OutTemp:      ptr(obs.OutTemp),
		OutHumidity:  ptr(obs.OutHumidity),
		Pressure:     ptr(obs.Pressure),
		WindSpeed:    ptr(obs.WindSpeed),
		WindDir:      ptr(obs.WindDir),
		Rain:         ptr(obs.Rain),
		LongTermRain: ptr(obs.LongTermRain),
	}, "", "  ")
}

func ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
