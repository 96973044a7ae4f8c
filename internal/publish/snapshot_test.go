package publish

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/lox/wxtd/internal/models"
)

func TestSnapshot(t *testing.T) {
	obs := &models.Observation{
		DateTime:   1756600000,
		UnitSystem: models.UnitsMetric,
		OutTemp:    sql.NullFloat64{Float64: 21.2, Valid: true},
		WindSpeed:  sql.NullFloat64{Float64: 2.2, Valid: true},
		Rain:       sql.NullFloat64{Float64: 0.05, Valid: true},
	}

	b, err := Snapshot(obs)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	var got struct {
		GeneratedAt string   `json:"generatedAt"`
		DateTime    int64    `json:"dateTime"`
		UnitSystem  string   `json:"unitSystem"`
		OutTemp     *float64 `json:"outTemp"`
		WindDir     *float64 `json:"windDir"`
		Rain        *float64 `json:"rain"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if _, err := time.Parse(time.RFC3339, got.GeneratedAt); err != nil {
		t.Errorf("generatedAt %q not RFC3339: %v", got.GeneratedAt, err)
	}
	if got.DateTime != 1756600000 {
		t.Errorf("dateTime = %d, want 1756600000", got.DateTime)
	}
	if got.UnitSystem != "metric" {
		t.Errorf("unitSystem = %q, want metric", got.UnitSystem)
	}
	if got.OutTemp == nil || *got.OutTemp != 21.2 {
		t.Errorf("outTemp = %v, want 21.2", got.OutTemp)
	}
	if got.WindDir != nil {
		t.Errorf("windDir = %v, want null", got.WindDir)
	}
	if got.Rain == nil || *got.Rain != 0.05 {
		t.Errorf("rain = %v, want 0.05", got.Rain)
	}
}
